package main

import (
	"bytes"
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hrygo/slotweaver/plugin/ai"
	"github.com/hrygo/slotweaver/plugin/ai/ranking"
	"github.com/hrygo/slotweaver/server/internal/observability"
	"github.com/hrygo/slotweaver/server/scheduler/selector"
	"github.com/hrygo/slotweaver/server/service/schedule"
	"github.com/hrygo/slotweaver/store"
)

// planOptions are the flags shared by plan and batch.
type planOptions struct {
	calendar   string
	dryRun     bool
	assumeFree bool
	output     string
	verbose    bool
}

func (o *planOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.calendar, "calendar", "", "calendar to plan against (overrides the request)")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "plan without creating events")
	cmd.Flags().BoolVar(&o.assumeFree, "assume-free", false, "plan against an empty calendar when busy periods cannot be read")
	cmd.Flags().StringVarP(&o.output, "output", "o", "text", `output format: "text" or "json"`)
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "print the decision log")
}

// apply layers the flags over a request read from a file.
func (o *planOptions) apply(req *schedule.PlanRequest) {
	if o.calendar != "" {
		req.CalendarID = o.calendar
	}
	req.CalendarID = calendarOrDefault(req.CalendarID)
	if req.Timezone == "" {
		req.Timezone = instanceProfile.Timezone
	}
	if req.WindowDays == 0 && req.WindowStart == nil && req.WindowEnd == nil {
		req.WindowDays = instanceProfile.WindowDays
	}
	req.DryRun = req.DryRun || o.dryRun
	req.AssumeFreeOnProviderError = req.AssumeFreeOnProviderError || o.assumeFree
}

var planOpts planOptions

var planCmd = &cobra.Command{
	Use:   "plan <request.yaml>",
	Short: "Plan one requirement and create its events",
	Long: `Plan one requirement read from a YAML or JSON file.

Examples:
  # Spread 300 minutes of deep work over the next week
  slotweaver plan deep-work.yaml

  # Preview a recurring habit without touching the calendar
  slotweaver plan --dry-run --verbose reading.yaml
`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planOpts.register(planCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
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
	req, res, err := planFile(ctx, svc, &planOpts, args[0])
	if err != nil {
		return err
	}

	logger.Debug("plan metrics", "snapshot", metrics.Snapshot())
	if err := printResult(cmd.OutOrStdout(), args[0], res, req, planOpts.output, planOpts.verbose); err != nil {
		return err
	}
	if !res.Success {
		return errors.Errorf("plan %s failed", args[0])
	}
	return nil
}

// readPlanRequest decodes a request file. YAML is a superset of JSON, so
// both formats go through the YAML decoder.
func readPlanRequest(path string) (*schedule.PlanRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read request %s", path)
	}
	return decodePlanRequest(data, path)
}

func decodePlanRequest(data []byte, name string) (*schedule.PlanRequest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	req := &schedule.PlanRequest{}
	if err := dec.Decode(req); err != nil {
		return nil, errors.Wrapf(err, "failed to decode request %s", name)
	}
	return req, nil
}

// newPlanService wires the store, the configured ranker and a metrics
// collector into a planning service.
func newPlanService(s *store.Store) (schedule.Service, *observability.Metrics, error) {
	cfg := ai.NewConfigFromProfile(instanceProfile)
	ranker, err := ranking.New(cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build ranker")
	}
	sel := selector.NewSelector(ranker)
	sel.RankTimeout = cfg.Timeout

	calendar := schedule.NewStoreCalendar(s)
	metrics := observability.NewMetrics()
	svc := schedule.NewService(calendar, calendar,
		schedule.WithSelector(sel),
		schedule.WithLogger(logger),
		schedule.WithMetrics(metrics),
	)
	return svc, metrics, nil
}

// planFile reads, completes and plans one request file.
func planFile(ctx context.Context, svc schedule.Service, opts *planOptions, path string) (*schedule.PlanRequest, *schedule.Result, error) {
	req, err := readPlanRequest(path)
	if err != nil {
		return nil, nil, err
	}
	opts.apply(req)
	res, err := svc.Plan(ctx, req)
	if err != nil {
		return req, nil, errors.Wrapf(err, "invalid request %s", path)
	}
	return req, res, nil
}
