package main

import (
	"encoding/json"

	"github.com/danpilch/hoststat/pkg/benchmark"
	"github.com/danpilch/hoststat/pkg/output"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/spf13/cobra"
)

func newBenchCmd(a *app) *cobra.Command {
	opts := benchmark.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure latency and allocations of each collector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sampler.New(a.cfg, a.logger)
			results := benchmark.Run(s.Registry().Collectors(), opts)

			if a.format == output.FormatJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			benchmark.RenderResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Iterations, "iterations", opts.Iterations, "measured calls per collector")
	cmd.Flags().IntVar(&opts.Warmup, "warmup", opts.Warmup, "unmeasured calls per collector")
	return cmd
}
