package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/present"
	"github.com/sells-group/floodsense/internal/resilience"
	"github.com/sells-group/floodsense/internal/workflow"
)

var (
	analyzeLat     float64
	analyzeLng     float64
	analyzeRetries int
	analyzeFormat  string
	analyzeOffline bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze flood risk for a single point",
	Example: `  floodsense analyze --lat -6.2 --lng 106.8
  floodsense analyze --lat 51.5074 --lng -0.1278 --format json --retries 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		format, err := present.ParseFormat(analyzeFormat)
		if err != nil {
			return err
		}

		env, err := initApp(ctx, "analyze", analyzeOffline)
		if err != nil {
			return err
		}
		defer env.Close()

		w := env.NewWorkflow(ctx)
		defer w.Close()

		retry := resilience.FromConfig(cfg.Retry)
		if analyzeRetries > 0 {
			retry.MaxAttempts = analyzeRetries
		}

		snap, analyzeErr := analyzePoint(ctx, w, model.NewPoint(analyzeLat, analyzeLng), retry)
		if err := present.Render(cmd.OutOrStdout(), format, snap); err != nil {
			return err
		}
		if analyzeErr != nil {
			return eris.Wrap(analyzeErr, workflow.FailureMessage)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeLat, "lat", 0, "latitude of the point")
	analyzeCmd.Flags().Float64Var(&analyzeLng, "lng", 0, "longitude of the point")
	analyzeCmd.Flags().IntVar(&analyzeRetries, "retries", 0, "total attempts for transient failures (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "output format: text, json, yaml, geojson")
	analyzeCmd.Flags().BoolVar(&analyzeOffline, "offline", false, "use the canned offline prediction")
	_ = analyzeCmd.MarkFlagRequired("lat")
	_ = analyzeCmd.MarkFlagRequired("lng")
	rootCmd.AddCommand(analyzeCmd)
}

// analyzePoint selects p, runs the analysis under the retry policy, and
// returns the settled snapshot. Only transient failures are retried; each
// retry goes back through RequestAnalysis from the failed state.
func analyzePoint(ctx context.Context, w *workflow.Workflow, p model.Point, retry resilience.RetryConfig) (model.Snapshot, error) {
	w.SelectPoint(p)

	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("analyze")
	}
	_, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.PredictionResult, error) {
		return runAnalysis(ctx, w)
	})

	snap, settleErr := w.Settled(ctx)
	if err == nil && settleErr != nil {
		err = settleErr
	}
	if err != nil {
		zap.L().Debug("analyze: giving up", zap.Stringer("point", p), zap.Error(err))
	}
	return snap, err
}

// runAnalysis requests one analysis and waits for its outcome.
func runAnalysis(ctx context.Context, w *workflow.Workflow) (*model.PredictionResult, error) {
	if !w.RequestAnalysis() {
		snap := w.Snapshot()
		if snap.Request.Status == model.RequestSucceeded {
			return snap.Request.Result, nil
		}
		return nil, eris.Errorf("analyze: request not accepted in state %s", snap.Request.Status)
	}

	snap, err := w.Settled(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Request.Status == model.RequestFailed {
		return nil, snap.Request.Err
	}
	return snap.Request.Result, nil
}
