package predict

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/floodsense/internal/model"
)

// ErrAnalysisFailed matches every error returned by Client.Analyze.
var ErrAnalysisFailed = eris.New("predict: analysis failed")

// Reason classifies why an analysis failed.
type Reason string

const (
	ReasonTransport Reason = "transport"
	ReasonStatus    Reason = "status"
	ReasonMalformed Reason = "malformed"
	ReasonCanceled  Reason = "canceled"
)

// AnalysisError describes a failed prediction for a single point.
// StatusCode is 0 when no HTTP response was received.
type AnalysisError struct {
	Point      model.Point
	Reason     Reason
	StatusCode int
	Err        error
}

func (e *AnalysisError) Error() string {
	msg := fmt.Sprintf("predict: analyze (%s): %s", e.Point, e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrAnalysisFailed) match any AnalysisError.
func (e *AnalysisError) Is(target error) bool {
	return target == ErrAnalysisFailed
}
