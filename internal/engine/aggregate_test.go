package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupPairs(r *Result) [][2]any {
	out := make([][2]any, len(r.Groups))
	for i, g := range r.Groups {
		out[i] = [2]any{g.Label(), g.Value}
	}
	return out
}

func TestAggregateCountFirstAppearance(t *testing.T) {
	f := newTestFrame(t)

	res, err := Aggregate(f, Query{GroupBy: []string{"GameGenre"}, Op: OpCount})
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{"A", 2.0}, {"B", 1.0}, {"C", 2.0}}, groupPairs(res))
	assert.Equal(t, 5, res.Total)

	sum := 0
	for _, g := range res.Groups {
		sum += g.Count
	}
	assert.Equal(t, f.Len(), sum)
}

func TestAggregateMetricIgnoredForCount(t *testing.T) {
	f := newTestFrame(t)
	res, err := Aggregate(f, Query{GroupBy: []string{"Gender"}, Metric: "Location", Op: OpCount})
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{"Male", 3.0}, {"Female", 2.0}}, groupPairs(res))
	assert.Empty(t, res.Metric)
}

func TestAggregateNumericOps(t *testing.T) {
	f := newTestFrame(t)
	q := Query{GroupBy: []string{"Location"}, Metric: "PlayTimeHours"}

	cases := []struct {
		op   Op
		want [][2]any
	}{
		{OpSum, [][2]any{{"USA", 14.5}, {"Europe", 2.5}, {"Asia", 8.0}}},
		{OpMean, [][2]any{{"USA", 7.25}, {"Europe", 1.25}, {"Asia", 8.0}}},
		{OpMin, [][2]any{{"USA", 4.0}, {"Europe", 0.5}, {"Asia", 8.0}}},
		{OpMax, [][2]any{{"USA", 10.5}, {"Europe", 2.0}, {"Asia", 8.0}}},
	}
	for _, tc := range cases {
		t.Run(tc.op.String(), func(t *testing.T) {
			q.Op = tc.op
			res, err := Aggregate(f, q)
			require.NoError(t, err)
			assert.Equal(t, tc.want, groupPairs(res))
		})
	}
}

func TestAggregatePercentOfFilteredScope(t *testing.T) {
	f := newTestFrame(t)
	scoped, err := Filter(f, Predicate{"Location": {"USA", "Asia"}})
	require.NoError(t, err)

	res, err := Aggregate(scoped, Query{GroupBy: []string{"GameGenre"}, Op: OpPercent})
	require.NoError(t, err)

	total := 0.0
	for _, g := range res.Groups {
		total += g.Value
	}
	assert.InDelta(t, 100.0, total, 1e-9)
	g, ok := res.Lookup("A")
	require.True(t, ok)
	assert.InDelta(t, 100.0/3, g.Value, 1e-9)
}

func TestAggregateCompositeKey(t *testing.T) {
	f := newTestFrame(t)
	res, err := Aggregate(f, Query{GroupBy: []string{"Location", "Gender"}, Op: OpCount})
	require.NoError(t, err)

	keys := make([][]string, len(res.Groups))
	for i, g := range res.Groups {
		keys[i] = g.Key
	}
	assert.Equal(t, [][]string{
		{"USA", "Male"},
		{"Europe", "Female"},
		{"Asia", "Female"},
		{"Europe", "Male"},
	}, keys)

	res, err = Aggregate(f, Query{GroupBy: []string{"Location", "Gender"}, Op: OpCount, Order: OrderKey})
	require.NoError(t, err)
	assert.Equal(t, []string{"Asia", "Female"}, res.Groups[0].Key)
	assert.Equal(t, []string{"Europe", "Female"}, res.Groups[1].Key)
	assert.Equal(t, []string{"Europe", "Male"}, res.Groups[2].Key)
	assert.Equal(t, []string{"USA", "Male"}, res.Groups[3].Key)
	assert.Equal(t, 2, res.Groups[3].Count)
}

func TestAggregateSortByNumericKey(t *testing.T) {
	f := newTestFrame(t)
	res, err := Aggregate(f, Query{GroupBy: []string{"Age"}, Op: OpCount, Order: OrderKey})
	require.NoError(t, err)

	var keys []string
	for _, g := range res.Groups {
		keys = append(keys, g.Key[0])
	}
	assert.Equal(t, []string{"14", "19", "20", "43", "50"}, keys)
}

func TestAggregateSortByBucketOrder(t *testing.T) {
	f := newTestFrame(t)
	spec := BucketSpec{
		Edges:  []float64{0, 9, 19, 24, 49},
		Labels: []string{"0-9", "10-19", "20-24", "25-49"},
	}
	b, err := Bucketize(f, "Age", spec)
	require.NoError(t, err)

	res, err := Aggregate(b, Query{GroupBy: []string{"AgeGroup"}, Op: OpCount, Order: OrderKey})
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{"10-19", 2.0}, {"20-24", 1.0}, {"25-49", 1.0}, {Unbucketed, 1.0}}, groupPairs(res))

	spec = BucketSpec{Edges: []float64{0, 15, 100}, Labels: []string{"young", "adult"}}
	b, err = Bucketize(f, "Age", spec)
	require.NoError(t, err)
	res, err = Aggregate(b, Query{GroupBy: []string{"AgeGroup"}, Op: OpCount, Order: OrderKey})
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{"young", 1.0}, {"adult", 4.0}}, groupPairs(res))
}

func TestAggregateValueOrderAndLimit(t *testing.T) {
	f := newTestFrame(t)
	res, err := Aggregate(f, Query{
		GroupBy: []string{"Location"},
		Metric:  "PlayTimeHours",
		Op:      OpSum,
		Order:   OrderValueDesc,
		Limit:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{"USA", 14.5}, {"Asia", 8.0}}, groupPairs(res))
}

func TestAggregateErrors(t *testing.T) {
	f := newTestFrame(t)

	_, err := Aggregate(f, Query{Op: OpCount})
	assert.ErrorIs(t, err, ErrNoGroupBy)

	_, err = Aggregate(f, Query{GroupBy: []string{"GameGenre"}, Op: OpMean})
	assert.ErrorIs(t, err, ErrNoMetric)

	_, err = Aggregate(f, Query{GroupBy: []string{"GameGenre"}, Metric: "Gender", Op: OpMean})
	var ae *AggregationError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Gender", ae.Column)
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = Aggregate(f, Query{GroupBy: []string{"GameGenre"}, Metric: "Missing", Op: OpMax})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = Aggregate(f, Query{GroupBy: []string{"Missing"}, Op: OpCount})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = Aggregate(f, Query{GroupBy: []string{"GameGenre"}, Op: Op(42)})
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestParseOp(t *testing.T) {
	for in, want := range map[string]Op{
		"count":             OpCount,
		"avg":               OpMean,
		"MEAN":              OpMean,
		"percentageOfTotal": OpPercent,
		"percent":           OpPercent,
		"max":               OpMax,
	} {
		got, err := ParseOp(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOp("median")
	assert.ErrorIs(t, err, ErrUnknownOp)

	var op Op
	require.NoError(t, op.UnmarshalText([]byte("sum")))
	assert.Equal(t, OpSum, op)
}

func TestAggregateHighCardinalityKeys(t *testing.T) {
	// 3000 x 3000 key cells is past the dense table limit.
	const n = 3000
	b := NewBuilder(testSchema)
	for i := n - 1; i >= 0; i-- {
		require.NoError(t, b.Append([]string{fmt.Sprintf("%04d", i), "20", "Male", fmt.Sprintf("L%04d", i), "A", "1"}))
	}
	for i := 0; i < 100; i++ {
		require.NoError(t, b.Append([]string{fmt.Sprintf("%04d", i), "20", "Male", fmt.Sprintf("L%04d", i), "A", "2"}))
	}
	f := b.Build().Frame()

	res, err := Aggregate(f, Query{GroupBy: []string{"PlayerID", "Location"}, Metric: "PlayTimeHours", Op: OpSum})
	require.NoError(t, err)
	require.Len(t, res.Groups, n)
	assert.Equal(t, []string{"2999", "L2999"}, res.Groups[0].Key)
	assert.Equal(t, Group{Key: []string{"0000", "L0000"}, Value: 3, Count: 2}, res.Groups[n-1])
	assert.Equal(t, Group{Key: []string{"0100", "L0100"}, Value: 1, Count: 1}, res.Groups[n-101])

	total := 0
	for _, g := range res.Groups {
		total += g.Count
	}
	assert.Equal(t, f.Len(), total)

	res, err = Aggregate(f, Query{GroupBy: []string{"PlayerID", "Location"}, Op: OpCount, Order: OrderKey, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, [][2]any{{"0000 / L0000", 2.0}, {"0001 / L0001", 2.0}, {"0002 / L0002", 2.0}}, groupPairs(res))

	// Same groups as the dense path over the single column.
	single, err := Aggregate(f, Query{GroupBy: []string{"PlayerID"}, Op: OpCount, Order: OrderKey})
	require.NoError(t, err)
	res, err = Aggregate(f, Query{GroupBy: []string{"PlayerID", "Location"}, Op: OpCount, Order: OrderKey})
	require.NoError(t, err)
	require.Len(t, single.Groups, n)
	for i := range single.Groups {
		assert.Equal(t, single.Groups[i].Key[0], res.Groups[i].Key[0])
		assert.Equal(t, single.Groups[i].Count, res.Groups[i].Count)
	}
}
