package bot

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, `1\.5 \- a\_b \(x\)\!`, escape("1.5 - a_b (x)!"))
	assert.Equal(t, "Еда", escape("Еда"))
}

func TestFormatRatio(t *testing.T) {
	assert.Equal(t, "н/д", formatRatio(math.NaN()))
	assert.Equal(t, "н/д", formatRatio(math.Inf(1)))
	assert.Equal(t, "0.33", formatRatio(1.0/3))
	assert.Equal(t, "0.00", formatRatio(0))
}

func TestMonthsCodec(t *testing.T) {
	months := []time.Month{time.January, time.March, time.December}
	assert.Equal(t, "1,3,12", encodeMonths(months))

	got, err := decodeMonths("1,3,12")
	require.NoError(t, err)
	assert.Equal(t, months, got)

	got, err = decodeMonths("")
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, bad := range []string{"0", "13", "a", "1,,2"} {
		_, err := decodeMonths(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseNewCategory(t *testing.T) {
	name, code, p, err := parseNewCategory(" Спорт , SPORT , 0.25 ")
	require.NoError(t, err)
	assert.Equal(t, "Спорт", name)
	assert.Equal(t, "SPORT", code)
	assert.Equal(t, "0.25", p.String())

	_, _, _, err = parseNewCategory("a, b")
	assert.Error(t, err)
	_, _, _, err = parseNewCategory("a, b, x")
	assert.Error(t, err)
}
