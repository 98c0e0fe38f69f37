package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/danpilch/hoststat/pkg/output"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/spf13/cobra"
)

const trendLength = 30

func newWatchCmd(a *app) *cobra.Command {
	var (
		count int
		trend bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print per-core busy percentages every interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			f := output.NewFormatter(a.format, out)
			if trend {
				tracker := output.NewSparklineTracker(trendLength)
				tracker.SetScale(0, 100)
				f.SetSparklineTracker(tracker)
			}

			pair := sampler.NewPair(a.cfg, a.logger)
			_, first, err := pair.Next(ctx)
			if first == nil {
				return err
			}
			cores := first.Cores.Len()
			if a.format == output.FormatTable {
				fmt.Fprintln(out, coreHeader(cores))
			}

			ticker := time.NewTicker(a.cfg.Interval)
			defer ticker.Stop()

			for i := 0; count <= 0 || i < count; i++ {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}

				prev, curr, err := pair.Next(ctx)
				if curr == nil {
					return err
				}
				if err != nil {
					a.logger.WithError(err).Warn("Sample incomplete")
				}
				if err := f.RenderCoreBusy(prev, curr); err != nil {
					return err
				}
				cores = min(prev.Cores.Len(), curr.Cores.Len())
			}

			if trend && a.format == output.FormatTable {
				fmt.Fprintln(out)
				f.RenderCoreTrends(cores)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many lines (0 runs until interrupted)")
	cmd.Flags().BoolVar(&trend, "trend", false, "print a sparkline per core when done")
	return cmd
}

// coreHeader lines up with the rows of Formatter.RenderCoreBusy.
func coreHeader(cores int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s", "TIME")
	for i := range cores {
		fmt.Fprintf(&b, "  %4s", fmt.Sprintf("cpu%d", i))
	}
	return b.String()
}
