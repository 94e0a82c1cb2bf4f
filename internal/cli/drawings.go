package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"realtime-canvas/internal/model"
)

// DrawingsOptions drawings 명령 플래그
type DrawingsOptions struct {
	*RootOptions
	Timeout time.Duration
}

// NewDrawingsCommand 저장된 드로잉 목록 조회 명령
func NewDrawingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DrawingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drawings",
		Short: "List saved drawings",
		Long: `Fetch the bounded drawing list from GET /api/drawings.

Examples:
  canvasctl drawings
  canvasctl drawings --server http://10.0.0.5:3000 --format json`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			drawings, err := FetchDrawings(opts.BaseURL(), opts.Timeout)
			if err != nil {
				return err
			}
			rows := Summarize(drawings)
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			return writeSummaries(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}

// FetchDrawings GET {baseURL}/api/drawings 호출
func FetchDrawings(baseURL string, timeout time.Duration) ([]model.Drawing, error) {
	code, body, errs := fiber.Get(baseURL + "/api/drawings").
		Timeout(timeout).
		Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("fetch drawings: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("fetch drawings: unexpected status %d: %s", code, body)
	}

	var drawings []model.Drawing
	if err := json.Unmarshal(body, &drawings); err != nil {
		return nil, fmt.Errorf("decode drawings: %w", err)
	}
	if drawings == nil {
		drawings = []model.Drawing{}
	}
	return drawings, nil
}
