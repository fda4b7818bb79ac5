package main

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/slotweaver/server/service/schedule"
)

var (
	batchOpts     planOptions
	batchParallel int
)

var batchCmd = &cobra.Command{
	Use:   "batch <request.yaml>...",
	Short: "Plan several requirements in parallel",
	Long: `Plan several request files concurrently against the same calendar
store. Each plan is independent; results are printed in argument order.

Examples:
  slotweaver batch --parallel 4 plans/*.yaml
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchOpts.register(batchCmd)
	batchCmd.Flags().IntVarP(&batchParallel, "parallel", "p", 2, "maximum number of plans running at once")
	rootCmd.AddCommand(batchCmd)
}

type batchItem struct {
	req *schedule.PlanRequest
	res *schedule.Result
	err error
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchParallel < 1 {
		return errors.Errorf("--parallel must be positive, got %d", batchParallel)
	}
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	svc, metrics, err := newPlanService(s)
	if err != nil {
		return err
	}

	items := make([]batchItem, len(args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchParallel)
	for i, path := range args {
		g.Go(func() error {
			req, res, err := planFile(gctx, svc, &batchOpts, path)
			items[i] = batchItem{req: req, res: res, err: err}
			// One bad file does not cancel the others.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for i, item := range items {
		if item.err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n\n", args[i], item.err)
			continue
		}
		if !item.res.Success {
			failed++
		}
		if err := printResult(out, args[i], item.res, item.req, batchOpts.output, batchOpts.verbose); err != nil {
			return err
		}
	}

	snap := metrics.Snapshot()
	logger.Info("batch finished",
		slog.Int("plans", len(args)),
		slog.Int("failed", failed),
		slog.Float64("success_rate", snap.SuccessRate()),
		slog.Int64("fallbacks", snap.FallbackTotal))
	for _, mode := range snap.ModeNames() {
		m := snap.Modes[mode]
		logger.Debug("batch mode summary",
			slog.String("plan_mode", mode),
			slog.Int64("plans", m.PlanCount),
			slog.Int64("average_duration_ms", m.AverageDuration),
			slog.Any("status_counts", m.StatusCounts))
	}
	if failed > 0 {
		return errors.Errorf("%d of %d plans failed", failed, len(args))
	}
	return nil
}
