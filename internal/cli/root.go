package cli

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// RootOptions 모든 명령 공통 플래그
type RootOptions struct {
	Server  string // http(s)://host:port
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats 허용되는 출력 형식
var ValidFormats = []string{"text", "json"}

// NewRootCommand canvasctl 루트 명령 생성
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "canvasctl",
		Short: "Inspect and draw on a shared canvas server",
		Long:  "canvasctl talks to a shared canvas server over its REST and WebSocket endpoints.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := opts.WebSocketURL(); err != nil {
				return err
			}
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Server, "server", "s", envOr("CANVAS_SERVER", "http://localhost:3000"), "canvas server base URL")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewDrawingsCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewStrokeCommand(opts))
	cmd.AddCommand(NewDiscoverCommand(opts))

	return cmd
}

// BaseURL 끝의 / 를 뗀 서버 URL
func (o *RootOptions) BaseURL() string {
	return strings.TrimRight(o.Server, "/")
}

// WebSocketURL 서버 URL 에서 캔버스 WebSocket 주소 생성 (http→ws, https→wss)
func (o *RootOptions) WebSocketURL() (string, error) {
	u, err := url.Parse(o.BaseURL())
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", o.Server, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server URL %q: scheme must be http or https", o.Server)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", o.Server)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/canvas"
	return u.String(), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
