package model

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// FeatureKind distinguishes the shapes a feature slot value can take.
type FeatureKind int

const (
	// FeatureMissing is a null or absent value.
	FeatureMissing FeatureKind = iota
	// FeatureNumber is a numeric measurement.
	FeatureNumber
	// FeatureCategory is a categorical label.
	FeatureCategory
)

// FeatureValue is one positional entry of a prediction's feature vector.
// It is either numeric or categorical; the meaning of each position comes
// from the fixed FeatureSchema.
type FeatureValue struct {
	Kind   FeatureKind
	Number float64
	Text   string
}

// Num returns a numeric FeatureValue.
func Num(v float64) FeatureValue {
	return FeatureValue{Kind: FeatureNumber, Number: v}
}

// Cat returns a categorical FeatureValue.
func Cat(s string) FeatureValue {
	return FeatureValue{Kind: FeatureCategory, Text: s}
}

// UnmarshalJSON accepts a JSON number, string, or null.
func (f *FeatureValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = FeatureValue{}
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return eris.Wrap(err, "model: decode categorical feature")
		}
		*f = Cat(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return eris.Wrapf(err, "model: feature value %s is neither number nor string", string(trimmed))
	}
	*f = Num(n)
	return nil
}

// MarshalJSON writes the value back in its wire shape.
func (f FeatureValue) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FeatureNumber:
		return json.Marshal(f.Number)
	case FeatureCategory:
		return json.Marshal(f.Text)
	default:
		return []byte("null"), nil
	}
}

// MarshalYAML mirrors MarshalJSON for YAML renderers.
func (f FeatureValue) MarshalYAML() (any, error) {
	switch f.Kind {
	case FeatureNumber:
		return f.Number, nil
	case FeatureCategory:
		return f.Text, nil
	default:
		return nil, nil
	}
}

// PredictionResult is the scored outcome for one point. It is treated as
// immutable once created.
type PredictionResult struct {
	RiskScore float64        `json:"risk_score" yaml:"risk_score"`
	Features  []FeatureValue `json:"features" yaml:"features"`
}

// Clone returns a deep copy so callers cannot alias the feature slice.
func (r *PredictionResult) Clone() *PredictionResult {
	if r == nil {
		return nil
	}
	out := &PredictionResult{RiskScore: r.RiskScore}
	if r.Features != nil {
		out.Features = make([]FeatureValue, len(r.Features))
		copy(out.Features, r.Features)
	}
	return out
}

// FeatureSlot names one position of the feature vector.
type FeatureSlot struct {
	Key   string
	Label string
	Unit  string
}

// FeatureSchema is the positional layout of PredictionResult.Features as
// produced by the scoring backend.
var FeatureSchema = []FeatureSlot{
	{Key: "precip_1d", Label: "Current Rainfall (1 Day)", Unit: "mm"},
	{Key: "precip_3d", Label: "Rainfall (Last 3 Days)", Unit: "mm"},
	{Key: "jrc_perm_water", Label: "Permanent Water Occurrence", Unit: "%"},
	{Key: "NDVI", Label: "Vegetation Index (NDVI)"},
	{Key: "NDWI", Label: "Water Index (NDWI)"},
	{Key: "landcover", Label: "Land Cover Type"},
	{Key: "elevation", Label: "Elevation", Unit: "m ASL"},
	{Key: "slope", Label: "Slope", Unit: "°"},
	{Key: "aspect", Label: "Aspect", Unit: "°"},
	{Key: "upstream_area", Label: "Upstream Catchment Area", Unit: "km²"},
	{Key: "TWI", Label: "Topographic Wetness Index (TWI)"},
}
