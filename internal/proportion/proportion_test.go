package proportion

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-9

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func some(s string) decimal.NullDecimal { return decimal.NewNullDecimal(dec(s)) }

func TestFractionRoundTrip(t *testing.T) {
	for _, f := range []float64{0.01, 0.1, 0.25, 1.0 / 3, 0.5, 0.75, 0.99} {
		assert.InDelta(t, f, ToFraction(ToProportion(f)), tolerance, "fraction %v", f)
	}
	for _, p := range []float64{0, 0.1, 0.5, 1, 2, 10} {
		assert.InDelta(t, p, ToProportion(ToFraction(p)), tolerance, "proportion %v", p)
	}
}

func TestToFraction(t *testing.T) {
	assert.InDelta(t, 0.5, ToFraction(1), tolerance)
	assert.InDelta(t, 1.0/3, ToFraction(0.5), tolerance)
	assert.InDelta(t, 0.0, ToFraction(0), tolerance)
}

func TestActual(t *testing.T) {
	tests := []struct {
		name  string
		minor decimal.NullDecimal
		major decimal.NullDecimal
		want  float64
		nan   bool
	}{
		{name: "regular", minor: some("300"), major: some("900"), want: 300.0 / 900.0},
		{name: "minor absent", minor: decimal.NullDecimal{}, major: some("900"), want: 0},
		{name: "minor zero", minor: some("0"), major: some("900"), want: 0},
		{name: "minor absent and major absent", want: 0},
		{name: "major absent", minor: some("300"), nan: true},
		{name: "major zero", minor: some("300"), major: some("0"), nan: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Actual(tt.minor, tt.major)
			if tt.nan {
				assert.True(t, math.IsNaN(got), "expected NaN, got %v", got)
				return
			}
			assert.InDelta(t, tt.want, got, tolerance)
		})
	}
}

func TestTarget(t *testing.T) {
	t.Run("single category keeps its proportion", func(t *testing.T) {
		got := Target([]Share{{Amount: dec("1000"), Proportion: dec("0.5")}})
		assert.InDelta(t, 0.5, got, tolerance)
	})

	t.Run("weighted by amount", func(t *testing.T) {
		// fractions: 1/2 weighted by 100, 1/3 weighted by 300 -> 150/400
		got := Target([]Share{
			{Amount: dec("100"), Proportion: dec("1")},
			{Amount: dec("300"), Proportion: dec("0.5")},
		})
		f := (0.5*100 + (1.0/3)*300) / 400
		assert.InDelta(t, f/(1-f), got, tolerance)
	})

	t.Run("zero total is not computable", func(t *testing.T) {
		assert.True(t, math.IsNaN(Target(nil)))
		assert.True(t, math.IsNaN(Target([]Share{{Amount: decimal.Zero, Proportion: dec("1")}})))
	})

	t.Run("zero proportion categories pull the target down", func(t *testing.T) {
		got := Target([]Share{
			{Amount: dec("100"), Proportion: dec("0")},
			{Amount: dec("100"), Proportion: dec("1")},
		})
		assert.InDelta(t, ToProportion(0.25), got, tolerance)
	})
}
