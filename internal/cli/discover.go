package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"realtime-canvas/internal/discovery"
)

// DiscoverOptions discover 명령 플래그
type DiscoverOptions struct {
	*RootOptions
	Timeout time.Duration
}

// NewDiscoverCommand mDNS 로 LAN 의 캔버스 서버 검색
func NewDiscoverCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiscoverOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find canvas servers on the local network (mDNS)",
		Long: `Browse the LAN for servers started with MDNS_ENABLED=true.

Examples:
  canvasctl discover
  canvasctl discover --timeout 5s --format json`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := discovery.Browse(cmd.Context(), opts.Timeout)
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), services)
			}
			if len(services) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "no canvas servers found")
				return err
			}
			for _, s := range services {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\thttp://%s\n", s.Instance, s.Addr); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 2*time.Second, "how long to listen for answers")
	return cmd
}
