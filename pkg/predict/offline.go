package predict

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/floodsense/internal/model"
)

// offlineResult is the fixed prediction served in offline mode, shaped like
// a real backend response for a low-lying river plain.
var offlineResult = model.PredictionResult{
	RiskScore: 0.42,
	Features: []model.FeatureValue{
		model.Num(12.4),
		model.Num(38.9),
		model.Num(0),
		model.Num(0.31245),
		model.Num(-0.12873),
		model.Num(40),
		model.Num(7.0),
		model.Num(1.23456),
		model.Num(180.5),
		model.Num(0.84),
		model.Num(9.87654),
	},
}

// offlineClient returns offlineResult without any network I/O.
type offlineClient struct{}

func (offlineClient) Analyze(ctx context.Context, p model.Point) (*model.PredictionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AnalysisError{Point: p, Reason: ReasonCanceled, Err: err}
	}
	zap.L().Debug("predict: offline result", zap.Stringer("point", p))
	return offlineResult.Clone(), nil
}
