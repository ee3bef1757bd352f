package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/present"
	"github.com/sells-group/floodsense/internal/resilience"
	"github.com/sells-group/floodsense/internal/risk"
	"github.com/sells-group/floodsense/internal/workflow"
)

var (
	batchInput       string
	batchConcurrency int
	batchFormat      string
	batchOffline     bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze flood risk for every point in a CSV file",
	Long: `Reads lat,lng rows from a CSV file and analyzes each point with its own
workflow. A header row is skipped when its first field is not a number.
Failures are reported per point and do not stop the batch.`,
	Example: `  floodsense batch --input points.csv
  floodsense batch --input points.csv --concurrency 8 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchFormat != "text" && batchFormat != "json" {
			return eris.Errorf("batch: unknown format %q (want text or json)", batchFormat)
		}

		f, err := os.Open(batchInput)
		if err != nil {
			return eris.Wrap(err, "batch: open input")
		}
		defer f.Close() //nolint:errcheck

		points, err := readPoints(f)
		if err != nil {
			return err
		}

		env, err := initApp(ctx, "batch", batchOffline)
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.Concurrency
		}

		retry := resilience.FromConfig(cfg.Retry)
		results, err := processPoints(ctx, points, concurrency, func(ctx context.Context, p model.Point) (model.Snapshot, error) {
			w := env.NewWorkflow(ctx)
			defer w.Close()
			return analyzePoint(ctx, w, p, retry)
		})
		if err != nil {
			return err
		}

		if batchFormat == "json" {
			return present.RenderJSON(cmd.OutOrStdout(), results)
		}
		return writeBatchText(cmd.OutOrStdout(), results)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "CSV file of lat,lng rows")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "points analyzed in parallel (default from config)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "text", "output format: text or json")
	batchCmd.Flags().BoolVar(&batchOffline, "offline", false, "use the canned offline prediction")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// readPoints parses lat,lng rows. Blank lines are skipped by encoding/csv;
// a first row whose latitude is not numeric is treated as a header.
func readPoints(r io.Reader) ([]model.Point, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var points []model.Point
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "batch: read row %d", row)
		}
		if len(rec) < 2 {
			return nil, eris.Errorf("batch: row %d: want lat,lng, got %d fields", row, len(rec))
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		if latErr != nil && row == 1 {
			continue
		}
		if latErr != nil {
			return nil, eris.Wrapf(latErr, "batch: row %d: latitude", row)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: row %d: longitude", row)
		}
		points = append(points, model.NewPoint(lat, lng))
	}
	return points, nil
}

// analyzeFunc selects and analyzes one point and returns its settled snapshot.
type analyzeFunc func(ctx context.Context, p model.Point) (model.Snapshot, error)

// batchResult is the outcome for one input row.
type batchResult struct {
	Point    model.Point             `json:"point"`
	Location string                  `json:"location,omitempty"`
	Status   string                  `json:"status"`
	Risk     *risk.Assessment        `json:"risk,omitempty"`
	Result   *model.PredictionResult `json:"result,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// processPoints analyzes points concurrently with at most concurrency in
// flight. Results keep input order. Individual failures are recorded in
// their result and never abort the batch.
func processPoints(ctx context.Context, points []model.Point, concurrency int, analyze analyzeFunc) ([]batchResult, error) {
	results := make([]batchResult, len(points))
	if len(points) == 0 {
		zap.L().Info("no points to analyze")
		return results, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("points", len(points)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, p := range points {
		g.Go(func() error {
			log := zap.L().With(zap.Stringer("point", p))

			snap, err := analyze(gctx, p)
			res := batchResult{
				Point:    p,
				Location: snap.Geocode.Name(),
				Status:   snap.Request.Status.String(),
			}
			if err != nil {
				failed.Add(1)
				res.Status = model.RequestFailed.String()
				res.Error = err.Error()
				log.Error("analysis failed", zap.Error(err))
				results[i] = res
				return nil
			}

			if r := snap.Request.Result; r != nil {
				a := risk.Assess(r.RiskScore)
				res.Risk = &a
				res.Result = r
			}
			succeeded.Add(1)
			log.Info("analysis complete", zap.String("status", res.Status))
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results, nil
}

func writeBatchText(out io.Writer, results []batchResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LAT\tLNG\tLOCATION\tSTATUS\tRISK")
	_, _ = fmt.Fprintln(w, "---\t---\t--------\t------\t----")
	for _, r := range results {
		riskCol := "-"
		if r.Risk != nil {
			riskCol = fmt.Sprintf("%s (%d%%)", r.Risk.Label, r.Risk.Percent)
		}
		if r.Error != "" {
			riskCol = workflow.FailureMessage
		}
		_, _ = fmt.Fprintf(w, "%.5f\t%.5f\t%s\t%s\t%s\n",
			r.Point.Lat, r.Point.Lng, r.Location, r.Status, riskCol)
	}
	return w.Flush()
}
