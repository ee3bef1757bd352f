package present

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/floodsense/internal/model"
)

// PointFeature returns the selected point as a GeoJSON Feature whose
// properties carry the view, so a map can draw the marker and its panel
// from one document. With nothing selected the geometry is null.
func PointFeature(snap model.Snapshot) *geojson.Feature {
	v := Build(snap)

	props := map[string]any{
		"session":          v.Session,
		"generation":       v.Generation,
		"status":           v.Status,
		"location_loading": v.LocationLoading,
	}
	if v.Location != "" {
		props["location"] = v.Location
	}
	if v.Action != "" {
		props["action"] = v.Action
	}
	if v.Risk != nil {
		props["risk_score"] = v.Risk.Score
		props["risk_percent"] = v.Risk.Percent
		props["risk_category"] = v.Risk.Category.String()
		props["risk_label"] = v.Risk.Label
	}
	if len(v.Conditions) > 0 {
		conditions := make(map[string]string, len(v.Conditions))
		for _, c := range v.Conditions {
			conditions[c.Key] = c.Value
		}
		props["conditions"] = conditions
	}
	if v.Error != "" {
		props["error"] = v.Error
	}

	feat := &geojson.Feature{ID: v.Session, Properties: props}
	if snap.Point != nil {
		feat.Geometry = geom.NewPointFlat(geom.XY, []float64{snap.Point.Lng, snap.Point.Lat}).SetSRID(4326)
	}
	return feat
}
