package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/danpilch/hoststat/pkg/baseline"
	"github.com/danpilch/hoststat/pkg/debug"
	"github.com/danpilch/hoststat/pkg/output"
	"github.com/danpilch/hoststat/pkg/sampler"
	"github.com/danpilch/hoststat/pkg/use"
	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	thresholds := use.DefaultThresholds()
	var score, raw bool
	var saveAs, compareTo, baselineDir string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run USE checks over two samples one interval apart",
		Long: "check takes two samples one interval apart and evaluates utilization,\n" +
			"saturation and errors for every core, memory, filesystem and interface.\n" +
			"The exit status is 0 when all is well, 1 on warnings, 2 on errors and\n" +
			"3 when the checks could not run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prev, curr, err := samplePair(cmd.Context(), a)
			if err != nil {
				return err
			}

			checks := use.NewChecker(thresholds, a.logger).Run(prev, curr)

			f := output.NewFormatter(a.format, cmd.OutOrStdout())
			f.SetShowScore(score)
			if err := f.Render(checks); err != nil {
				return err
			}
			if raw {
				debug.DumpRawMetrics(cmd.ErrOrStderr(), checks)
			}

			code := use.ExitCode(checks)
			if compareTo != "" {
				regressions, err := compareBaseline(cmd.OutOrStdout(), a.format, compareTo, baselineDir, checks)
				if err != nil {
					return err
				}
				if regressions > 0 && code == use.ExitOK {
					code = use.ExitWarning
				}
			}
			if saveAs != "" {
				if err := baseline.New(saveAs, checks).Save(baselineDir); err != nil {
					return err
				}
				a.logger.WithField("baseline", saveAs).Info("Baseline saved")
			}

			if code != use.ExitOK {
				return &exitError{code: code}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&thresholds.WarnUtil, "warn", thresholds.WarnUtil, "utilization warning threshold in percent")
	flags.Float64Var(&thresholds.CritUtil, "crit", thresholds.CritUtil, "utilization error threshold in percent")
	flags.Float64Var(&thresholds.SwapWarn, "swap-warn", thresholds.SwapWarn, "swap usage saturation threshold in percent")
	flags.BoolVar(&score, "score", false, "include the health score")
	flags.BoolVar(&raw, "raw", false, "dump the raw values behind every check")
	flags.StringVar(&saveAs, "save-baseline", "", "save the results as a named baseline")
	flags.StringVar(&compareTo, "baseline", "", "compare the results against a named baseline")
	flags.StringVar(&baselineDir, "baseline-dir", baseline.DefaultDir(), "directory baselines are kept in")
	return cmd
}

// compareBaseline renders the drift of checks against the named baseline
// and returns the number of regressions.
func compareBaseline(w io.Writer, format output.Format, name, dir string, checks []use.Check) (int, error) {
	b, err := baseline.Load(name, dir)
	if err != nil {
		return 0, err
	}
	comparisons := baseline.Compare(b, checks)

	if format == output.FormatJSON {
		err = json.NewEncoder(w).Encode(struct {
			Baseline    string                `json:"baseline"`
			Comparisons []baseline.Comparison `json:"comparisons"`
		}{b.Name, comparisons})
	} else {
		baseline.RenderComparison(w, b, comparisons)
	}
	return baseline.Regressions(comparisons), err
}

// samplePair takes two snapshots one interval apart. Collector failures
// are left in the snapshots for the checks to report.
func samplePair(ctx context.Context, a *app) (prev, curr *sampler.Snapshot, err error) {
	pair := sampler.NewPair(a.cfg, a.logger)
	if _, first, err := pair.Next(ctx); first == nil {
		return nil, nil, err
	}

	timer := time.NewTimer(a.cfg.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-timer.C:
	}

	prev, curr, err = pair.Next(ctx)
	if curr == nil {
		return nil, nil, err
	}
	if err != nil {
		a.logger.WithError(err).Debug("Sample incomplete")
	}
	return prev, curr, nil
}
