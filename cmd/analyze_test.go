//go:build !integration

package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/resilience"
	"github.com/sells-group/floodsense/internal/risk"
	"github.com/sells-group/floodsense/pkg/predict"
	pmocks "github.com/sells-group/floodsense/pkg/predict/mocks"
)

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestAnalyzePoint_Success(t *testing.T) {
	p := model.NewPoint(-6.2, 106.8)
	client := pmocks.NewMockClient(t)
	client.On("Analyze", mock.Anything, p).Return(sampleResult(0.72), nil).Once()

	w := newTestWorkflow(t, client, "Jakarta, Indonesia")
	snap, err := analyzePoint(context.Background(), w, p, fastRetry(1))
	require.NoError(t, err)

	assert.Equal(t, model.RequestSucceeded, snap.Request.Status)
	assert.Equal(t, "Jakarta, Indonesia", snap.Geocode.Name())
	a := risk.Assess(snap.Request.Result.RiskScore)
	assert.Equal(t, risk.High, a.Category)
	assert.Equal(t, 72, a.Percent)
}

func TestAnalyzePoint_RetriesTransientFailure(t *testing.T) {
	p := model.NewPoint(1, 2)
	transient := resilience.NewTransientError(&predict.AnalysisError{
		Point:      p,
		Reason:     predict.ReasonStatus,
		StatusCode: 503,
	}, 503)

	client := pmocks.NewMockClient(t)
	client.On("Analyze", mock.Anything, p).Return(nil, transient).Once()
	client.On("Analyze", mock.Anything, p).Return(sampleResult(0.2), nil).Once()

	w := newTestWorkflow(t, client, "Somewhere")
	snap, err := analyzePoint(context.Background(), w, p, fastRetry(3))
	require.NoError(t, err)
	assert.Equal(t, model.RequestSucceeded, snap.Request.Status)
	client.AssertNumberOfCalls(t, "Analyze", 2)
}

func TestAnalyzePoint_DoesNotRetryMalformedResponse(t *testing.T) {
	p := model.NewPoint(1, 2)
	malformed := &predict.AnalysisError{Point: p, Reason: predict.ReasonMalformed, StatusCode: 200}

	client := pmocks.NewMockClient(t)
	client.On("Analyze", mock.Anything, p).Return(nil, malformed).Once()

	w := newTestWorkflow(t, client, "Somewhere")
	snap, err := analyzePoint(context.Background(), w, p, fastRetry(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, predict.ErrAnalysisFailed))
	assert.Equal(t, model.RequestFailed, snap.Request.Status)
	client.AssertNumberOfCalls(t, "Analyze", 1)
}

func TestAnalyzePoint_GivesUpAfterAttempts(t *testing.T) {
	p := model.NewPoint(1, 2)
	transient := resilience.NewTransientError(errors.New("bad gateway"), 502)

	client := pmocks.NewMockClient(t)
	client.On("Analyze", mock.Anything, p).Return(nil, transient).Times(2)

	w := newTestWorkflow(t, client, "Somewhere")
	snap, err := analyzePoint(context.Background(), w, p, fastRetry(2))
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Equal(t, model.RequestFailed, snap.Request.Status)
	client.AssertNumberOfCalls(t, "Analyze", 2)
}

func TestAnalyzePoint_Offline(t *testing.T) {
	client, err := predict.New(predict.Config{Mode: predict.ModeOffline})
	require.NoError(t, err)

	w := newTestWorkflow(t, client, "Offline Place")
	snap, err := analyzePoint(context.Background(), w, model.NewPoint(10, 20), fastRetry(1))
	require.NoError(t, err)

	a := risk.Assess(snap.Request.Result.RiskScore)
	assert.Equal(t, risk.Medium, a.Category)
	assert.Equal(t, 42, a.Percent)
	assert.Len(t, snap.Request.Result.Features, len(model.FeatureSchema))
}

func TestRunAnalysis_AlreadySucceeded(t *testing.T) {
	p := model.NewPoint(1, 2)
	client := pmocks.NewMockClient(t)
	client.On("Analyze", mock.Anything, p).Return(sampleResult(0.5), nil).Once()

	w := newTestWorkflow(t, client, "Somewhere")
	w.SelectPoint(p)
	_, err := runAnalysis(context.Background(), w)
	require.NoError(t, err)

	res, err := runAnalysis(context.Background(), w)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.RiskScore, 1e-9)
	client.AssertNumberOfCalls(t, "Analyze", 1)
}

func TestRunAnalysis_NoSelection(t *testing.T) {
	w := newTestWorkflow(t, pmocks.NewMockClient(t), "unused")
	_, err := runAnalysis(context.Background(), w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not accepted")
}
