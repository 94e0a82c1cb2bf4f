package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"realtime-canvas/internal/client"
	"realtime-canvas/internal/model"
)

// WatchOptions watch 명령 플래그
type WatchOptions struct {
	*RootOptions
	Duration  time.Duration
	StrokeTTL time.Duration
}

// NewWatchCommand 원격 활동을 로그로 보여주는 명령
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect and log live canvas activity",
		Long: `Join the canvas as a passive client and log remote strokes,
saved drawings and online counts until interrupted.

Examples:
  canvasctl watch
  canvasctl watch --duration 1m -v`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			wsURL, err := opts.WebSocketURL()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if opts.Duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Duration)
				defer cancel()
			}

			renderer := &logRenderer{logger: slog.Default()}
			board := client.NewBoard(renderer, client.WithStrokeTTL(opts.StrokeTTL))

			conn, err := client.Dial(ctx, wsURL, board)
			if err != nil {
				return err
			}
			slog.Info("watching canvas", "url", wsURL)

			if err := conn.Run(ctx); err != nil {
				return err
			}

			stats := WatchStats{
				ConnID:    board.ConnID(),
				Online:    board.OnlineCount(),
				Drawings:  len(board.Saved()),
				Segments:  renderer.segments,
				Rendered:  renderer.strokes,
				OpenAtEnd: board.Remote().Len(),
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d drawings, %d online, %d live segments, %d strokes rendered\n",
				stats.Drawings, stats.Online, stats.Segments, stats.Rendered)
			return err
		},
	}

	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 = until interrupted)")
	cmd.Flags().DurationVar(&opts.StrokeTTL, "stroke-ttl", client.DefaultStrokeTTL, "drop remote strokes idle for this long")
	return cmd
}

// WatchStats watch 세션 요약
type WatchStats struct {
	ConnID    string `json:"conn_id"`
	Online    int64  `json:"online"`
	Drawings  int    `json:"drawings"`
	Segments  int    `json:"segments"`
	Rendered  int    `json:"rendered"`
	OpenAtEnd int    `json:"open_at_end"`
}

// logRenderer 화면 대신 그릴 내용을 로그로 남김
type logRenderer struct {
	logger   *slog.Logger
	segments int
	strokes  int
}

func (r *logRenderer) Clear() {
	r.logger.Debug("canvas cleared")
}

func (r *logRenderer) DrawSegment(seg client.Segment) {
	r.segments++
	if seg.IsDot() {
		r.logger.Info("remote stroke", "stroke", seg.StrokeID, "x", seg.From.X, "y", seg.From.Y, "color", seg.From.Color)
		return
	}
	r.logger.Debug("segment", "stroke", seg.StrokeID, "to_x", seg.To.X, "to_y", seg.To.Y)
}

func (r *logRenderer) DrawStroke(stroke model.Stroke) {
	r.strokes++
	r.logger.Debug("stroke rendered", "points", len(stroke), "color", stroke.Color())
}
