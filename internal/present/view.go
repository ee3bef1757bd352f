// Package present projects workflow snapshots into display-ready views and
// renders them as text, JSON, YAML, or GeoJSON.
package present

import (
	"math"
	"strconv"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/risk"
)

// Action labels for the analyze control.
const (
	ActionAnalyze   = "Analyze Flood Risk"
	ActionAnalyzing = "Analyzing..."
)

// Prompt is shown when nothing is selected.
const Prompt = "Click on the map to select a location."

// missingValue stands in for a null feature value.
const missingValue = "-"

// View is everything a presentation layer needs to draw the region panel.
type View struct {
	Session         string           `json:"session" yaml:"session"`
	Generation      uint64           `json:"generation" yaml:"generation"`
	Selected        bool             `json:"selected" yaml:"selected"`
	Prompt          string           `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Latitude        string           `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude       string           `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Location        string           `json:"location,omitempty" yaml:"location,omitempty"`
	LocationLoading bool             `json:"location_loading" yaml:"location_loading"`
	Status          string           `json:"status" yaml:"status"`
	Action          string           `json:"action,omitempty" yaml:"action,omitempty"`
	ActionEnabled   bool             `json:"action_enabled" yaml:"action_enabled"`
	Risk            *risk.Assessment `json:"risk,omitempty" yaml:"risk,omitempty"`
	Conditions      []Condition      `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Error           string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Condition is one labelled environmental feature.
type Condition struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
	Unit  string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Display joins the value and unit, e.g. "12.50000 mm".
func (c Condition) Display() string {
	if c.Unit == "" || c.Value == missingValue {
		return c.Value
	}
	return c.Value + " " + c.Unit
}

// Build projects snap into a View.
func Build(snap model.Snapshot) View {
	v := View{
		Session:    snap.SessionID,
		Generation: snap.Generation,
		Selected:   snap.Selected(),
		Status:     snap.Request.Status.String(),
	}
	if !v.Selected {
		v.Prompt = Prompt
		return v
	}

	v.Latitude = strconv.FormatFloat(snap.Point.Lat, 'f', 5, 64)
	v.Longitude = strconv.FormatFloat(snap.Point.Lng, 'f', 5, 64)
	v.Location = snap.Geocode.Name()
	v.LocationLoading = snap.Geocode.Loading

	switch snap.Request.Status {
	case model.RequestIdle:
		v.Action, v.ActionEnabled = ActionAnalyze, true
	case model.RequestLoading:
		v.Action = ActionAnalyzing
	case model.RequestFailed:
		v.Action, v.ActionEnabled = ActionAnalyze, true
		if snap.Request.Err != nil {
			v.Error = snap.Request.Err.Error()
		}
	case model.RequestSucceeded:
		if res := snap.Request.Result; res != nil {
			a := risk.Assess(res.RiskScore)
			v.Risk = &a
			v.Conditions = Conditions(res.Features)
		}
	}
	return v
}

// Conditions labels features positionally. Slots past the end of features
// are omitted; extra features with no slot are ignored.
func Conditions(features []model.FeatureValue) []Condition {
	n := min(len(features), len(model.FeatureSchema))
	out := make([]Condition, 0, n)
	for i := 0; i < n; i++ {
		slot := model.FeatureSchema[i]
		out = append(out, Condition{
			Key:   slot.Key,
			Label: slot.Label,
			Value: FormatValue(features[i]),
			Unit:  slot.Unit,
		})
	}
	return out
}

// FormatValue renders integers verbatim, other numbers with 5 decimals,
// categories verbatim, and missing values as "-".
func FormatValue(f model.FeatureValue) string {
	switch f.Kind {
	case model.FeatureNumber:
		if f.Number == math.Trunc(f.Number) && !math.IsInf(f.Number, 0) {
			return strconv.FormatFloat(f.Number, 'f', -1, 64)
		}
		return strconv.FormatFloat(f.Number, 'f', 5, 64)
	case model.FeatureCategory:
		return f.Text
	default:
		return missingValue
	}
}

// LegendEntry is one row of the map legend.
type LegendEntry struct {
	Key         string `json:"key" yaml:"key"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description" yaml:"description"`
	MaxPercent  int    `json:"max_percent" yaml:"max_percent"`
}

// Legend returns the legend rows in display order.
func Legend() []LegendEntry {
	out := make([]LegendEntry, 0, 3)
	for _, c := range risk.Legend() {
		out = append(out, LegendEntry{
			Key:         c.String(),
			Label:       risk.Label(c),
			Description: risk.Label(c) + " of Flooding",
			MaxPercent:  risk.UpperBound(c),
		})
	}
	return out
}
