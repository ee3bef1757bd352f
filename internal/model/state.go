package model

// RequestStatus is the lifecycle stage of the analysis request for the
// current selection.
type RequestStatus int

const (
	RequestIdle RequestStatus = iota
	RequestLoading
	RequestSucceeded
	RequestFailed
)

func (s RequestStatus) String() string {
	switch s {
	case RequestIdle:
		return "idle"
	case RequestLoading:
		return "loading"
	case RequestSucceeded:
		return "succeeded"
	case RequestFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON and YAML output.
func (s RequestStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RequestState is Idle, Loading, Succeeded(Result), or Failed(Err).
// Result is set only when Status is RequestSucceeded; Err only when
// Status is RequestFailed.
type RequestState struct {
	Status RequestStatus     `json:"status" yaml:"status"`
	Result *PredictionResult `json:"result,omitempty" yaml:"result,omitempty"`
	Err    error             `json:"-" yaml:"-"`
}

// Terminal reports whether no request is in flight.
func (r RequestState) Terminal() bool {
	return r.Status != RequestLoading
}

// GeocodeState is the reverse-geocoding view of the current point.
// LocationName is nil until a name (or the coordinate fallback) is known.
type GeocodeState struct {
	LocationName *string `json:"location_name" yaml:"location_name"`
	Loading      bool    `json:"loading" yaml:"loading"`
}

// Name returns the resolved name or "" when none is known yet.
func (g GeocodeState) Name() string {
	if g.LocationName == nil {
		return ""
	}
	return *g.LocationName
}

// Snapshot is an immutable copy of a workflow's observable state. Point is
// nil when nothing is selected.
type Snapshot struct {
	SessionID  string       `json:"session_id" yaml:"session_id"`
	Generation uint64       `json:"generation" yaml:"generation"`
	Point      *Point       `json:"point" yaml:"point"`
	Request    RequestState `json:"request" yaml:"request"`
	Geocode    GeocodeState `json:"geocode" yaml:"geocode"`
}

// Selected reports whether a point is currently selected.
func (s Snapshot) Selected() bool {
	return s.Point != nil
}

// Settled reports whether neither the analysis nor the geocode lookup is
// in flight.
func (s Snapshot) Settled() bool {
	return s.Request.Terminal() && !s.Geocode.Loading
}
