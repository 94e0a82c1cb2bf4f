package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"realtime-canvas/internal/client"
	"realtime-canvas/internal/model"
)

// StrokeOptions stroke 명령 플래그
type StrokeOptions struct {
	*RootOptions
	From    string
	To      string
	Points  int
	Color   string
	Size    float64
	Timeout time.Duration
}

// StrokeResult 서버가 저장을 확인한 뒤 출력하는 결과
type StrokeResult struct {
	StrokeID  string `json:"stroke_id"`
	DrawingID string `json:"drawing_id"`
	Points    int    `json:"points"`
}

// NewStrokeCommand 직선 스트로크를 그리고 저장 확인까지 기다리는 명령
func NewStrokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StrokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stroke",
		Short: "Draw a straight stroke and wait until it is saved",
		Long: `Draw a straight line between two normalized points (0..1),
broadcast it live, save it and wait for the server's confirmation.

Examples:
  canvasctl stroke --from 0.1,0.1 --to 0.9,0.9
  canvasctl stroke --from 0.5,0.2 --to 0.5,0.8 --color "#ff0000" --points 20`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePoint(opts.From)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			to, err := parsePoint(opts.To)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if opts.Points < 2 {
				return errors.New("--points must be at least 2")
			}
			wsURL, err := opts.WebSocketURL()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			points := interpolate(from, to, opts.Points, opts.Color, opts.Size)
			result, err := DrawStroke(ctx, wsURL, points)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %s as drawing %s (%d points)\n",
				result.StrokeID, result.DrawingID, result.Points)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "0.1,0.1", "start point x,y")
	cmd.Flags().StringVar(&opts.To, "to", "0.9,0.9", "end point x,y")
	cmd.Flags().IntVar(&opts.Points, "points", 10, "number of points along the line")
	cmd.Flags().StringVar(&opts.Color, "color", "#000000", "stroke color")
	cmd.Flags().Float64Var(&opts.Size, "size", 0.005, "stroke width (normalized)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "overall timeout")
	return cmd
}

// DrawStroke 연결 후 points 를 스트로크 하나로 그리고 drawing-saved 확인까지 대기
func DrawStroke(ctx context.Context, wsURL string, points model.Stroke) (StrokeResult, error) {
	if len(points) == 0 {
		return StrokeResult{}, errors.New("empty stroke")
	}

	echoed := make(chan model.Drawing, 1)
	board := client.NewBoard(nopRenderer{}, client.WithEchoHook(func(d model.Drawing) {
		select {
		case echoed <- d:
		default:
		}
	}))

	conn, err := client.Dial(ctx, wsURL, board)
	if err != nil {
		return StrokeResult{}, err
	}
	defer conn.Close()

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go func() {
		if err := conn.Run(runCtx); err != nil {
			slog.Warn("connection closed", "error", err)
		}
	}()

	// 연결 ID 를 받아야 스트로크 ID 에 소유자가 들어간다
	if err := waitFor(ctx, func() bool { return board.ConnID() != "" }); err != nil {
		return StrokeResult{}, fmt.Errorf("waiting for connection id: %w", err)
	}

	if err := board.BeginStroke(points[0]); err != nil {
		return StrokeResult{}, err
	}
	for _, p := range points[1:] {
		if err := board.ExtendStroke(p); err != nil {
			return StrokeResult{}, err
		}
	}
	strokeID, err := board.EndStroke()
	if err != nil {
		return StrokeResult{}, err
	}
	slog.Debug("stroke sent", "stroke", strokeID, "points", len(points))

	select {
	case d := <-echoed:
		return StrokeResult{StrokeID: strokeID, DrawingID: d.ID, Points: len(points)}, nil
	case <-ctx.Done():
		return StrokeResult{}, fmt.Errorf("waiting for save confirmation: %w", ctx.Err())
	}
}

func waitFor(ctx context.Context, cond func() bool) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// parsePoint "x,y" 파싱 (두 좌표 모두 0~1)
func parsePoint(s string) (model.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.Point{}, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("invalid x %q", parts[0])
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("invalid y %q", parts[1])
	}
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return model.Point{}, fmt.Errorf("coordinates must be within [0,1], got %q", s)
	}
	return model.Point{X: x, Y: y}, nil
}

// interpolate a 에서 b 까지 같은 간격의 점 n 개
func interpolate(a, b model.Point, n int, color string, size float64) model.Stroke {
	out := make(model.Stroke, n)
	for i := range n {
		t := float64(i) / float64(n-1)
		out[i] = model.Point{
			X:     a.X + (b.X-a.X)*t,
			Y:     a.Y + (b.Y-a.Y)*t,
			Color: color,
			Size:  size,
		}
	}
	return out
}

type nopRenderer struct{}

func (nopRenderer) Clear() {}

func (nopRenderer) DrawSegment(client.Segment) {}

func (nopRenderer) DrawStroke(model.Stroke) {}
