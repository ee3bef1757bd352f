package present

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/risk"
)

func strPtr(s string) *string { return &s }

func selected(status model.RequestStatus) model.Snapshot {
	p := model.NewPoint(-6.2, 106.8)
	return model.Snapshot{
		SessionID:  "s1",
		Generation: 3,
		Point:      &p,
		Request:    model.RequestState{Status: status},
		Geocode:    model.GeocodeState{LocationName: strPtr("Jakarta, Indonesia")},
	}
}

func succeeded() model.Snapshot {
	snap := selected(model.RequestSucceeded)
	snap.Request.Result = &model.PredictionResult{
		RiskScore: 0.72,
		Features: []model.FeatureValue{
			model.Num(12.5),
			model.Num(30),
			{},
			model.Num(0.123456789),
			model.Cat("n/a"),
		},
	}
	return snap
}

func TestBuild_NoSelection(t *testing.T) {
	t.Parallel()

	v := Build(model.Snapshot{SessionID: "s1"})
	assert.False(t, v.Selected)
	assert.Equal(t, Prompt, v.Prompt)
	assert.Empty(t, v.Action)
	assert.Nil(t, v.Risk)
	assert.Equal(t, "idle", v.Status)
}

func TestBuild_ActionLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status  model.RequestStatus
		action  string
		enabled bool
	}{
		{model.RequestIdle, "Analyze Flood Risk", true},
		{model.RequestLoading, "Analyzing...", false},
		{model.RequestFailed, "Analyze Flood Risk", true},
		{model.RequestSucceeded, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			t.Parallel()
			v := Build(selected(tt.status))
			assert.Equal(t, tt.action, v.Action)
			assert.Equal(t, tt.enabled, v.ActionEnabled)
		})
	}
}

func TestBuild_Coordinates(t *testing.T) {
	t.Parallel()

	v := Build(selected(model.RequestIdle))
	assert.Equal(t, "-6.20000", v.Latitude)
	assert.Equal(t, "106.80000", v.Longitude)
	assert.Equal(t, "Jakarta, Indonesia", v.Location)
}

func TestBuild_Succeeded(t *testing.T) {
	t.Parallel()

	v := Build(succeeded())
	require.NotNil(t, v.Risk)
	assert.Equal(t, 72, v.Risk.Percent)
	assert.Equal(t, risk.High, v.Risk.Category)
	assert.Equal(t, "High Risk", v.Risk.Label)

	require.Len(t, v.Conditions, 5)
	assert.Equal(t, Condition{Key: "precip_1d", Label: "Current Rainfall (1 Day)", Value: "12.50000", Unit: "mm"}, v.Conditions[0])
	assert.Equal(t, "30", v.Conditions[1].Value)
	assert.Equal(t, "-", v.Conditions[2].Value)
	assert.Equal(t, "0.12346", v.Conditions[3].Value)
	assert.Equal(t, "n/a", v.Conditions[4].Value)
	assert.Equal(t, "Water Index (NDWI)", v.Conditions[4].Label)
}

func TestBuild_Failed(t *testing.T) {
	t.Parallel()

	snap := selected(model.RequestFailed)
	snap.Request.Err = errors.New("predict: unexpected status 500")
	v := Build(snap)
	assert.Equal(t, "predict: unexpected status 500", v.Error)
	assert.Nil(t, v.Risk)
}

func TestConditions_ExtraFeaturesIgnored(t *testing.T) {
	t.Parallel()

	features := make([]model.FeatureValue, len(model.FeatureSchema)+3)
	for i := range features {
		features[i] = model.Num(float64(i))
	}
	conds := Conditions(features)
	assert.Len(t, conds, len(model.FeatureSchema))
	assert.Equal(t, "TWI", conds[len(conds)-1].Key)
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "40", FormatValue(model.Num(40)))
	assert.Equal(t, "-3", FormatValue(model.Num(-3)))
	assert.Equal(t, "0", FormatValue(model.Num(0)))
	assert.Equal(t, "7.10000", FormatValue(model.Num(7.1)))
	assert.Equal(t, "-0.12873", FormatValue(model.Num(-0.128734)))
	assert.Equal(t, "urban", FormatValue(model.Cat("urban")))
	assert.Equal(t, "-", FormatValue(model.FeatureValue{}))
}

func TestConditionDisplay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "12.50000 mm", Condition{Value: "12.50000", Unit: "mm"}.Display())
	assert.Equal(t, "0.5", Condition{Value: "0.5"}.Display())
	assert.Equal(t, "-", Condition{Value: "-", Unit: "mm"}.Display())
}

func TestLegend(t *testing.T) {
	t.Parallel()

	entries := Legend()
	require.Len(t, entries, 3)
	assert.Equal(t, LegendEntry{Key: "low", Label: "Low Risk", Description: "Low Risk of Flooding", MaxPercent: 30}, entries[0])
	assert.Equal(t, "medium", entries[1].Key)
	assert.Equal(t, "high", entries[2].Key)

	var buf bytes.Buffer
	require.NoError(t, RenderLegend(&buf, entries))
	assert.Contains(t, buf.String(), "0-30%")
	assert.Contains(t, buf.String(), "31-60%")
	assert.Contains(t, buf.String(), "61-100%")
}

func TestRenderText_Succeeded(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Build(succeeded())))
	out := buf.String()

	assert.Contains(t, out, "Jakarta, Indonesia")
	assert.Contains(t, out, "-6.20000")
	assert.Contains(t, out, "High Risk (72%)")
	assert.Contains(t, out, "Current Rainfall (1 Day)")
	assert.Contains(t, out, "12.50000 mm")
	assert.NotContains(t, out, "Analyze Flood Risk")
}

func TestRenderText_LoadingStates(t *testing.T) {
	t.Parallel()

	snap := selected(model.RequestLoading)
	snap.Geocode = model.GeocodeState{Loading: true}

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Build(snap)))
	assert.Contains(t, buf.String(), "Loading location...")
	assert.Contains(t, buf.String(), "[Analyzing...] (disabled)")
}

func TestRenderText_NoSelection(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, Build(model.Snapshot{})))
	assert.Equal(t, Prompt+"\n", buf.String())
}

func TestRenderJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, succeeded()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "succeeded", got["status"])
	r := got["risk"].(map[string]any)
	assert.Equal(t, "high", r["category"])
	assert.EqualValues(t, 72, r["percent"])
}

func TestRenderYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatYAML, succeeded()))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Jakarta, Indonesia", got["location"])
	assert.Equal(t, "succeeded", got["status"])
}

func TestPointFeature(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatGeoJSON, succeeded()))

	var got struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Feature", got.Type)
	assert.Equal(t, "Point", got.Geometry.Type)
	assert.Equal(t, []float64{106.8, -6.2}, got.Geometry.Coordinates)
	assert.Equal(t, "high", got.Properties["risk_category"])
	assert.Equal(t, "Jakarta, Indonesia", got.Properties["location"])
}

func TestPointFeature_NoSelection(t *testing.T) {
	t.Parallel()

	feat := PointFeature(model.Snapshot{SessionID: "s1"})
	assert.Nil(t, feat.Geometry)
	assert.Equal(t, "idle", feat.Properties["status"])
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"text", "JSON", " yaml ", "geojson"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}
