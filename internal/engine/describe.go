package engine

import (
	"math"

	"github.com/aclements/go-moremath/stats"
	"github.com/aclements/go-moremath/vec"
)

// Summary is the five-number summary plus mean of a numeric column.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Describe summarizes a numeric column of f. An empty frame gives a zero
// Summary.
func Describe(f *Frame, column string) (Summary, error) {
	xs, err := f.Float64s(column)
	if err != nil {
		return Summary{}, &AggregationError{Column: column, Err: err}
	}
	return summarize(xs), nil
}

func summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	sample := stats.Sample{Xs: xs}
	sample.Sort()
	lo, hi := sample.Bounds()
	return Summary{
		Count:  len(xs),
		Mean:   sample.Mean(),
		Min:    lo,
		Q1:     sample.Quantile(0.25),
		Median: sample.Quantile(0.5),
		Q3:     sample.Quantile(0.75),
		Max:    hi,
	}
}

// DescribeBy summarizes a numeric column per value of a categorical column,
// in first-appearance order of the groups.
func DescribeBy(f *Frame, column, by string) ([]string, []Summary, error) {
	xs, err := f.Float64s(column)
	if err != nil {
		return nil, nil, &AggregationError{Column: column, Err: err}
	}
	keys, err := f.Strings(by)
	if err != nil {
		return nil, nil, &AggregationError{Column: by, Err: err}
	}
	index := make(map[string]int)
	var names []string
	var parts [][]float64
	for i, k := range keys {
		gi, ok := index[k]
		if !ok {
			gi = len(names)
			index[k] = gi
			names = append(names, k)
			parts = append(parts, nil)
		}
		parts[gi] = append(parts[gi], xs[i])
	}
	out := make([]Summary, len(parts))
	for i, p := range parts {
		out[i] = summarize(p)
	}
	return names, out, nil
}

// DensityPoint is one point of an estimated probability density.
type DensityPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Density estimates the probability density of a numeric column with a
// Gaussian kernel (Scott bandwidth), evaluated at n evenly spaced points
// spanning the data. Fewer than two distinct values give no curve.
func Density(f *Frame, column string, n int) ([]DensityPoint, error) {
	xs, err := f.Float64s(column)
	if err != nil {
		return nil, &AggregationError{Column: column, Err: err}
	}
	if len(xs) < 2 || n < 2 {
		return nil, nil
	}
	sample := stats.Sample{Xs: xs}
	lo, hi := sample.Bounds()
	if math.IsNaN(lo) || hi <= lo {
		return nil, nil
	}
	kde := stats.KDE{
		Sample:    sample,
		Kernel:    stats.GaussianKernel,
		Bandwidth: stats.BandwidthScott(sample),
	}
	grid := vec.Linspace(lo, hi, n)
	ys := vec.Map(kde.PDF, grid)
	out := make([]DensityPoint, len(grid))
	for i := range grid {
		out[i] = DensityPoint{X: grid[i], Y: ys[i]}
	}
	return out, nil
}

// Point is one scatter observation with its categorical hue.
type Point struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Hue string  `json:"hue,omitempty"`
}

// Points pairs two numeric columns row by row. When limit is positive and
// smaller than the frame, rows are taken at an even stride so the sample
// spans the whole frame.
func Points(f *Frame, x, y, hue string, limit int) ([]Point, error) {
	xs, err := f.Float64s(x)
	if err != nil {
		return nil, &AggregationError{Column: x, Err: err}
	}
	ys, err := f.Float64s(y)
	if err != nil {
		return nil, &AggregationError{Column: y, Err: err}
	}
	var hues []string
	if hue != "" {
		if hues, err = f.Strings(hue); err != nil {
			return nil, &AggregationError{Column: hue, Err: err}
		}
	}
	n := len(xs)
	step := 1.0
	if limit > 0 && n > limit {
		step = float64(n) / float64(limit)
		n = limit
	}
	out := make([]Point, n)
	for i := range out {
		j := int(float64(i) * step)
		out[i] = Point{X: xs[j], Y: ys[j]}
		if hues != nil {
			out[i].Hue = hues[j]
		}
	}
	return out, nil
}

// Mean returns the mean of a numeric column, NaN for an empty frame.
func Mean(f *Frame, column string) (float64, error) {
	xs, err := f.Float64s(column)
	if err != nil {
		return 0, &AggregationError{Column: column, Op: OpMean, Err: err}
	}
	if len(xs) == 0 {
		return math.NaN(), nil
	}
	return stats.Mean(xs), nil
}

// Bounds returns the minimum and maximum of a numeric column, NaN for an
// empty frame.
func Bounds(f *Frame, column string) (float64, float64, error) {
	xs, err := f.Float64s(column)
	if err != nil {
		return 0, 0, &AggregationError{Column: column, Err: err}
	}
	lo, hi := stats.Bounds(xs)
	return lo, hi, nil
}
