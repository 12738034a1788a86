package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	f := newTestFrame(t)

	s, err := Describe(f, "Age")
	require.NoError(t, err)
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 14.0, s.Min)
	assert.Equal(t, 50.0, s.Max)
	assert.InDelta(t, 20.0, s.Median, 1e-9)
	assert.InDelta(t, 29.2, s.Mean, 1e-9)
	assert.LessOrEqual(t, s.Q1, s.Median)
	assert.LessOrEqual(t, s.Median, s.Q3)

	empty, err := Filter(f, Predicate{"Location": {"Mars"}})
	require.NoError(t, err)
	s, err = Describe(empty, "Age")
	require.NoError(t, err)
	assert.Equal(t, Summary{}, s)

	_, err = Describe(f, "Gender")
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestDescribeBy(t *testing.T) {
	f := newTestFrame(t)
	names, sums, err := DescribeBy(f, "PlayTimeHours", "Location")
	require.NoError(t, err)
	assert.Equal(t, []string{"USA", "Europe", "Asia"}, names)
	require.Len(t, sums, 3)
	assert.Equal(t, 2, sums[0].Count)
	assert.Equal(t, 4.0, sums[0].Min)
	assert.Equal(t, 10.5, sums[0].Max)
	assert.InDelta(t, 8.0, sums[2].Median, 1e-9)
}

func TestDensity(t *testing.T) {
	f := newTestFrame(t)

	pts, err := Density(f, "PlayTimeHours", 50)
	require.NoError(t, err)
	require.Len(t, pts, 50)
	assert.InDelta(t, 0.5, pts[0].X, 1e-9)
	assert.InDelta(t, 10.5, pts[49].X, 1e-9)
	for _, p := range pts {
		assert.Greater(t, p.Y, 0.0)
		assert.False(t, math.IsNaN(p.Y))
	}

	one, err := Filter(f, Predicate{"Location": {"Asia"}})
	require.NoError(t, err)
	pts, err = Density(one, "PlayTimeHours", 50)
	require.NoError(t, err)
	assert.Empty(t, pts)
}

func TestPoints(t *testing.T) {
	f := newTestFrame(t)

	pts, err := Points(f, "PlayTimeHours", "Age", "Gender", 0)
	require.NoError(t, err)
	require.Len(t, pts, 5)
	assert.Equal(t, Point{X: 10.5, Y: 19, Hue: "Male"}, pts[0])

	pts, err = Points(f, "PlayTimeHours", "Age", "", 2)
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, Point{X: 10.5, Y: 19}, pts[0])
	assert.Equal(t, Point{X: 4, Y: 43}, pts[1])
}

func TestMeanAndBounds(t *testing.T) {
	f := newTestFrame(t)

	m, err := Mean(f, "PlayTimeHours")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, m, 1e-9)

	lo, hi, err := Bounds(f, "PlayTimeHours")
	require.NoError(t, err)
	assert.Equal(t, 0.5, lo)
	assert.Equal(t, 10.5, hi)

	empty, _ := Filter(f, Predicate{"Location": {"Mars"}})
	m, err = Mean(empty, "PlayTimeHours")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(m))
}
