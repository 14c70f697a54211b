package charts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"popmap/internal/population"
)

func sample() *population.Departement {
	i := population.Int
	return &population.Departement{
		ID:       "75",
		Nom:      "Paris",
		Ensemble: population.NewTranche(i(400), i(700), i(500), i(300), i(200), i(2100)),
		Hommes:   population.NewTranche(i(200), i(340), nil, i(140), i(80), i(1000)),
		Femmes:   population.NewTranche(i(200), i(360), i(250), i(160), i(120), i(3000)),
	}
}

func TestNilRendersNothing(t *testing.T) {
	require.Nil(t, Bar(nil))
	require.Nil(t, Pie(nil))
	require.Nil(t, Pyramid(nil))
	b := All(nil)
	require.Nil(t, b.Bar)
	require.Nil(t, b.Pie)
}

func TestBar(t *testing.T) {
	c := Bar(sample())
	require.Len(t, c.Groups, 5)
	require.Equal(t, "0-19", c.Groups[0].Label)
	require.Equal(t, int64(0), c.Groups[2].Hommes, "missing counts as zero")
	require.Equal(t, int64(700), c.Max)
	require.Equal(t, int64(360), c.Groups[1].Femmes)
}

func TestPieAnglesUnsorted(t *testing.T) {
	s := Pie(sample())
	require.Len(t, s, 2)
	require.Equal(t, "Hommes", s[0].Label)
	require.Equal(t, 0.0, s[0].StartAngle)
	require.InDelta(t, math.Pi/2, s[0].EndAngle, 1e-12)
	require.Equal(t, s[0].EndAngle, s[1].StartAngle)
	require.InDelta(t, 2*math.Pi, s[1].EndAngle, 1e-12)

	empty := Pie(&population.Departement{})
	require.Equal(t, 0.0, empty[1].EndAngle)
}

func TestPyramidSortedDescending(t *testing.T) {
	p := Pyramid(sample())
	require.Len(t, p.Rows, 5)
	labels := make([]string, 0, 5)
	for _, r := range p.Rows {
		labels = append(labels, r.Label)
		require.LessOrEqual(t, r.Hommes, int64(0))
	}
	require.Equal(t, []string{"20-39", "0-19", "60-74", "40-59", "75+"}, labels)
	require.Equal(t, int64(360), p.Max)
}

func TestAggregateFeedsCharts(t *testing.T) {
	all := []population.Departement{*sample(), *sample()}
	agg := population.Displayed(nil, all)
	c := Bar(&agg)
	require.Equal(t, int64(1400), c.Max)
}
