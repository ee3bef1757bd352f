//go:build !integration

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/resolver"
	"github.com/sells-group/floodsense/internal/workflow"
	gmocks "github.com/sells-group/floodsense/pkg/geocode/mocks"
	"github.com/sells-group/floodsense/pkg/predict"
)

func namedReverser(t *testing.T, name string) *gmocks.MockReverser {
	rev := gmocks.NewMockReverser(t)
	rev.On("Reverse", mock.Anything, mock.Anything, mock.Anything).Return(name, nil).Maybe()
	return rev
}

func newTestWorkflow(t *testing.T, client predict.Client, name string) *workflow.Workflow {
	t.Helper()
	w := workflow.New(client, resolver.New(namedReverser(t, name)), workflow.WithSessionID("test-session"))
	t.Cleanup(w.Close)
	return w
}

func settle(t *testing.T, w *workflow.Workflow) model.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := w.Settled(ctx)
	require.NoError(t, err)
	return snap
}

func sampleResult(score float64) *model.PredictionResult {
	return &model.PredictionResult{
		RiskScore: score,
		Features:  []model.FeatureValue{model.Num(12.5), model.Num(30), model.Num(0.123456)},
	}
}
