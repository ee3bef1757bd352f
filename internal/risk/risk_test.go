package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Category
	}{
		{0, Low},
		{15, Low},
		{30, Low},
		{30.0001, Medium},
		{45, Medium},
		{60, Medium},
		{60.0001, High},
		{72, High},
		{100, High},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "Classify(%v)", tt.score)
	}
}

func TestClassify_OutOfRangeClamps(t *testing.T) {
	assert.Equal(t, Low, Classify(-5))
	assert.Equal(t, High, Classify(250))
}

func TestClassify_Ranges(t *testing.T) {
	for s := 0.0; s <= 100; s += 0.5 {
		got := Classify(s)
		switch {
		case s <= 30:
			assert.Equal(t, Low, got, "score %v", s)
		case s <= 60:
			assert.Equal(t, Medium, got, "score %v", s)
		default:
			assert.Equal(t, High, got, "score %v", s)
		}
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Low Risk", Label(Low))
	assert.Equal(t, "Medium Risk", Label(Medium))
	assert.Equal(t, "High Risk", Label(High))
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "low", Low.String())
	assert.Equal(t, "medium", Medium.String())
	assert.Equal(t, "high", High.String())
	assert.Equal(t, "unknown", Category(9).String())
}

func TestAssess(t *testing.T) {
	a := Assess(0.72)
	assert.Equal(t, High, a.Category)
	assert.Equal(t, "High Risk", a.Label)
	assert.Equal(t, 72, a.Percent)

	// The displayed percentage drives the category.
	a = Assess(0.304)
	assert.Equal(t, Low, a.Category)
	assert.Equal(t, 30, a.Percent)

	a = Assess(0.306)
	assert.Equal(t, Medium, a.Category)
	assert.Equal(t, 31, a.Percent)
}

func TestPercent_Rounds(t *testing.T) {
	assert.Equal(t, 73, Percent(0.726))
	assert.Equal(t, 72, Percent(0.724))
	assert.Equal(t, 0, Percent(0))
	assert.Equal(t, 100, Percent(1))
}

func TestLegend_Order(t *testing.T) {
	assert.Equal(t, []Category{Low, Medium, High}, Legend())
}

func TestUpperBound(t *testing.T) {
	assert.Equal(t, 30, UpperBound(Low))
	assert.Equal(t, 60, UpperBound(Medium))
	assert.Equal(t, 100, UpperBound(High))
	for _, c := range Legend() {
		assert.Equal(t, c, Classify(float64(UpperBound(c))))
	}
}
