package engine

import (
	"sort"
)

// Unbucketed labels values that fall outside every range of a BucketSpec.
const Unbucketed = "unbucketed"

// BucketSpec maps a numeric value to a labelled range. Ranges are closed
// on the right: Labels[i] covers (Edges[i], Edges[i+1]].
type BucketSpec struct {
	Edges  []float64 `json:"edges"`
	Labels []string  `json:"labels"`
	// Name of the derived column; defaults to "<column>Group".
	Name string `json:"name,omitempty"`
}

// Validate checks edge ordering and label count.
func (s BucketSpec) Validate() error {
	if len(s.Edges) < 2 {
		return ErrBadEdges
	}
	for i := 1; i < len(s.Edges); i++ {
		if !(s.Edges[i] > s.Edges[i-1]) {
			return ErrBadEdges
		}
	}
	if len(s.Labels) != len(s.Edges)-1 {
		return ErrLabelCount
	}
	seen := make(map[string]bool, len(s.Labels))
	for _, l := range s.Labels {
		if l == "" || l == Unbucketed || seen[l] {
			return ErrBadLabel
		}
		seen[l] = true
	}
	return nil
}

// Bucket returns the index of the range containing v.
func (s BucketSpec) Bucket(v float64) (int, bool) {
	// smallest i with Edges[i] >= v
	i := sort.SearchFloat64s(s.Edges, v)
	if i == 0 || i == len(s.Edges) {
		return 0, false
	}
	return i - 1, true
}

// Label returns the label of the range containing v, or Unbucketed.
func (s BucketSpec) Label(v float64) string {
	if i, ok := s.Bucket(v); ok {
		return s.Labels[i]
	}
	return Unbucketed
}

// ColumnName returns the derived column name for bucketing column.
func (s BucketSpec) ColumnName(column string) string {
	if s.Name != "" {
		return s.Name
	}
	return column + "Group"
}

// Bucketize returns a frame with a derived categorical column holding the
// bucket label of each row's value in column. Values outside every range
// get the Unbucketed label instead of being dropped. The receiver is not
// modified; an existing derived column of the same name is replaced.
func Bucketize(f *Frame, column string, spec BucketSpec) (*Frame, error) {
	if err := spec.Validate(); err != nil {
		return nil, &BucketError{Column: column, Err: err}
	}
	// Read the stored column so a derived column shadowing it cannot
	// change the result of a repeated call.
	arr, ok := f.store.numeric[column]
	if !ok {
		if _, known := f.Kind(column); known {
			return nil, &BucketError{Column: column, Err: ErrNotNumeric}
		}
		return nil, &BucketError{Column: column, Err: ErrUnknownColumn}
	}

	dict := make([]string, 0, len(spec.Labels)+1)
	dict = append(dict, spec.Labels...)
	dict = append(dict, Unbucketed)
	sentinel := int32(len(spec.Labels))

	// Label every stored row so the column stays valid for any selection.
	ids := make([]int32, arr.Len())
	for i := range ids {
		if b, ok := spec.Bucket(arr.Value(i)); ok {
			ids[i] = int32(b)
		} else {
			ids[i] = sentinel
		}
	}

	name := spec.ColumnName(column)
	derived := make(map[string]*CategoricalColumn, len(f.derived)+1)
	for k, v := range f.derived {
		derived[k] = v
	}
	order := f.derivedOrder
	if _, exists := derived[name]; !exists {
		order = append(order[:len(order):len(order)], name)
	}
	derived[name] = &CategoricalColumn{IDs: ids, Dict: dict, Ordered: true}

	return &Frame{
		store:        f.store,
		rows:         f.rows,
		derived:      derived,
		derivedOrder: order,
	}, nil
}

// EqualWidth returns a spec of n equal-width buckets covering [lo, hi].
// The lower edge is nudged down so lo itself is bucketed.
func EqualWidth(lo, hi float64, n int, format func(lo, hi float64) string) BucketSpec {
	if n < 1 {
		n = 1
	}
	if hi <= lo {
		hi = lo + 1
	}
	width := (hi - lo) / float64(n)
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[0] = lo - width*1e-9
	edges[n] = hi
	labels := make([]string, n)
	for i := range labels {
		labels[i] = format(lo+float64(i)*width, lo+float64(i+1)*width)
	}
	return BucketSpec{Edges: edges, Labels: labels}
}
