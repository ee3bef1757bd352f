// Package risk maps model risk scores onto the Low/Medium/High buckets
// shown to users.
package risk

import "math"

// Category is a discretized flood-risk bucket.
type Category int

const (
	Low Category = iota
	Medium
	High
)

// Bucket upper bounds on the 0-100 scale, inclusive.
const (
	lowMax    = 30
	mediumMax = 60
)

// String returns the legend key: "low", "medium", or "high".
func (c Category) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalText renders the category by its legend key.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Classify buckets a score already scaled to 0-100. Anything at or below 30
// is Low, at or below 60 is Medium, everything else High. Out-of-range
// scores land in Low or High.
func Classify(score float64) Category {
	switch {
	case score <= lowMax:
		return Low
	case score <= mediumMax:
		return Medium
	default:
		return High
	}
}

// Label returns the human label for c.
func Label(c Category) string {
	switch c {
	case Low:
		return "Low Risk"
	case Medium:
		return "Medium Risk"
	default:
		return "High Risk"
	}
}

// UpperBound returns the inclusive upper percentage of c's bucket.
func UpperBound(c Category) int {
	switch c {
	case Low:
		return lowMax
	case Medium:
		return mediumMax
	default:
		return 100
	}
}

// Legend lists the categories in display order.
func Legend() []Category {
	return []Category{Low, Medium, High}
}

// Percent converts a raw [0,1] score into a whole percentage for display.
func Percent(raw float64) int {
	return int(math.Round(raw * 100))
}

// Assessment is the display-ready summary of a raw score.
type Assessment struct {
	Score    float64  `json:"score" yaml:"score"`
	Percent  int      `json:"percent" yaml:"percent"`
	Category Category `json:"category" yaml:"category"`
	Label    string   `json:"label" yaml:"label"`
}

// Assess scales raw by 100 and classifies the rounded percentage, so the
// category always agrees with the percentage shown next to it.
func Assess(raw float64) Assessment {
	pct := Percent(raw)
	c := Classify(float64(pct))
	return Assessment{
		Score:    raw,
		Percent:  pct,
		Category: c,
		Label:    Label(c),
	}
}
