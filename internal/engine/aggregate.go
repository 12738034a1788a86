package engine

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// Op selects how each group's value is computed.
type Op int

const (
	OpCount Op = iota
	OpSum
	OpMean
	OpMin
	OpMax
	OpPercent // group row count as a percentage of the frame's rows
)

var opNames = map[Op]string{
	OpCount:   "count",
	OpSum:     "sum",
	OpMean:    "mean",
	OpMin:     "min",
	OpMax:     "max",
	OpPercent: "percent",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp accepts the op names plus the aliases "avg" and "percentageOfTotal".
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "count", "":
		return OpCount, nil
	case "sum":
		return OpSum, nil
	case "mean", "avg":
		return OpMean, nil
	case "min":
		return OpMin, nil
	case "max":
		return OpMax, nil
	case "percent", "percentage", "percentageoftotal":
		return OpPercent, nil
	}
	return 0, &AggregationError{Err: fmt.Errorf("%w: %q", ErrUnknownOp, s)}
}

func (o Op) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Op) UnmarshalText(b []byte) error {
	op, err := ParseOp(string(b))
	if err != nil {
		return err
	}
	*o = op
	return nil
}

func (o Op) needsMetric() bool {
	return o == OpSum || o == OpMean || o == OpMin || o == OpMax
}

// Order selects the order of groups in a Result.
type Order int

const (
	OrderFirstSeen Order = iota // discovery order while scanning rows
	OrderKey                    // by key, component by component
	OrderValueDesc
	OrderValueAsc
)

// ParseOrder accepts "first", "key", "value_desc" and "value_asc".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first_seen":
		return OrderFirstSeen, nil
	case "key", "sorted":
		return OrderKey, nil
	case "value_desc":
		return OrderValueDesc, nil
	case "value_asc":
		return OrderValueAsc, nil
	}
	return 0, &AggregationError{Err: fmt.Errorf("unknown order %q", s)}
}

func (o Order) String() string {
	switch o {
	case OrderKey:
		return "key"
	case OrderValueDesc:
		return "value_desc"
	case OrderValueAsc:
		return "value_asc"
	default:
		return "first"
	}
}

func (o Order) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Order) UnmarshalText(b []byte) error {
	v, err := ParseOrder(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Query describes one aggregation.
type Query struct {
	GroupBy []string `json:"group_by"`
	Metric  string   `json:"metric,omitempty"` // ignored by count and percent
	Op      Op       `json:"op"`
	Order   Order    `json:"order"`
	Limit   int      `json:"limit,omitempty"` // 0 keeps every group
}

// Group is one row of a Result. Key has one entry per GroupBy column.
type Group struct {
	Key   []string `json:"key"`
	Value float64  `json:"value"`
	Count int      `json:"count"`
}

// Label joins the key components for display.
func (g Group) Label() string {
	return strings.Join(g.Key, " / ")
}

// Result is an ordered list of groups with unique keys. Values are not
// rounded.
type Result struct {
	GroupBy []string `json:"group_by"`
	Metric  string   `json:"metric,omitempty"`
	Op      Op       `json:"op"`
	Groups  []Group  `json:"groups"`
	Total   int      `json:"total_rows"` // rows in the aggregated frame
}

// Lookup returns the group with the given key.
func (r *Result) Lookup(key ...string) (Group, bool) {
	for _, g := range r.Groups {
		if equalKeys(g.Key, key) {
			return g, true
		}
	}
	return Group{}, false
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// keyCol is one group-by column encoded as small integer codes.
type keyCol struct {
	codes   []int32 // per visible row
	values  []string
	nums    []float64 // numeric columns only, parallel to values
	ordered bool
}

func (f *Frame) keyColumn(name string) (*keyCol, bool) {
	n := f.Len()
	if c, ok := f.categorical(name); ok {
		kc := &keyCol{codes: make([]int32, n), values: c.Dict, ordered: c.Ordered}
		for i := 0; i < n; i++ {
			kc.codes[i] = c.IDs[f.base(i)]
		}
		return kc, true
	}
	arr, ok := f.numeric(name)
	if !ok {
		return nil, false
	}
	kc := &keyCol{codes: make([]int32, n)}
	seen := make(map[float64]int32)
	for i := 0; i < n; i++ {
		v := arr.Value(f.base(i))
		code, ok := seen[v]
		if !ok {
			code = int32(len(kc.values))
			seen[v] = code
			kc.values = append(kc.values, formatFloat(v))
			kc.nums = append(kc.nums, v)
		}
		kc.codes[i] = code
	}
	return kc, true
}

// Dense group tables above this many cells fall back to a map.
const maxDenseCells = 1 << 22

type groupAcc struct {
	first int // visible row that opened the group
	count int
	sum   float64
	min   float64
	max   float64
}

// Aggregate groups the rows of f by q.GroupBy and computes q.Op per group.
// Percentages are relative to f.Len(), so callers pass the filtered frame.
// An empty frame yields an empty result.
func Aggregate(f *Frame, q Query) (*Result, error) {
	if _, ok := opNames[q.Op]; !ok {
		return nil, &AggregationError{Op: q.Op, Err: ErrUnknownOp}
	}
	if len(q.GroupBy) == 0 {
		return nil, &AggregationError{Op: q.Op, Err: ErrNoGroupBy}
	}

	var metric []float64
	if q.Op.needsMetric() {
		if q.Metric == "" {
			return nil, &AggregationError{Op: q.Op, Err: ErrNoMetric}
		}
		vals, err := f.Float64s(q.Metric)
		if err != nil {
			return nil, &AggregationError{Column: q.Metric, Op: q.Op, Err: err}
		}
		metric = vals
	}

	keys := make([]*keyCol, len(q.GroupBy))
	for k, name := range q.GroupBy {
		kc, ok := f.keyColumn(name)
		if !ok {
			return nil, &AggregationError{Column: name, Op: q.Op, Err: ErrUnknownColumn}
		}
		keys[k] = kc
	}

	// 1. Composite index: mixed radix over the key cardinalities.
	// Dense slice when the grid is small, like a flattened matrix.
	cells := uint64(1)
	dense := true
	for _, kc := range keys {
		cells *= uint64(max(len(kc.values), 1))
		if cells > maxDenseCells {
			dense = false
			break
		}
	}
	var denseIdx []int32
	if dense {
		denseIdx = make([]int32, cells)
		for i := range denseIdx {
			denseIdx[i] = -1
		}
	}
	sparseIdx := make(map[string]int32)
	keyBuf := make([]byte, 4*len(keys))

	// 2. Scan
	n := f.Len()
	var accs []groupAcc
	for i := 0; i < n; i++ {
		var cell uint64
		var gi int32
		var ok bool
		if dense {
			for _, kc := range keys {
				cell = cell*uint64(len(kc.values)) + uint64(kc.codes[i])
			}
			gi = denseIdx[cell]
			ok = gi >= 0
		} else {
			for k, kc := range keys {
				binary.LittleEndian.PutUint32(keyBuf[4*k:], uint32(kc.codes[i]))
			}
			gi, ok = sparseIdx[string(keyBuf)]
		}
		if !ok {
			gi = int32(len(accs))
			accs = append(accs, groupAcc{first: i})
			if dense {
				denseIdx[cell] = gi
			} else {
				sparseIdx[string(keyBuf)] = gi
			}
		}

		a := &accs[gi]
		a.count++
		if metric != nil {
			v := metric[i]
			a.sum += v
			if a.count == 1 || v < a.min {
				a.min = v
			}
			if a.count == 1 || v > a.max {
				a.max = v
			}
		}
	}

	// 3. Values
	res := &Result{
		GroupBy: append([]string(nil), q.GroupBy...),
		Metric:  q.Metric,
		Op:      q.Op,
		Groups:  make([]Group, len(accs)),
		Total:   n,
	}
	if !q.Op.needsMetric() {
		res.Metric = ""
	}
	firstRows := make([]int, len(accs))
	for gi, a := range accs {
		key := make([]string, len(keys))
		for k, kc := range keys {
			key[k] = kc.values[kc.codes[a.first]]
		}
		g := Group{Key: key, Count: a.count}
		switch q.Op {
		case OpCount:
			g.Value = float64(a.count)
		case OpSum:
			g.Value = a.sum
		case OpMean:
			g.Value = a.sum / float64(a.count)
		case OpMin:
			g.Value = a.min
		case OpMax:
			g.Value = a.max
		case OpPercent:
			g.Value = float64(a.count) / float64(n) * 100
		}
		res.Groups[gi] = g
		firstRows[gi] = a.first
	}

	// 4. Order + limit
	switch q.Order {
	case OrderKey:
		idx := make([]int, len(res.Groups))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return keyLess(keys, firstRows[idx[a]], firstRows[idx[b]])
		})
		sorted := make([]Group, len(idx))
		for i, j := range idx {
			sorted[i] = res.Groups[j]
		}
		res.Groups = sorted
	case OrderValueDesc:
		sort.SliceStable(res.Groups, func(a, b int) bool { return res.Groups[a].Value > res.Groups[b].Value })
	case OrderValueAsc:
		sort.SliceStable(res.Groups, func(a, b int) bool { return res.Groups[a].Value < res.Groups[b].Value })
	}
	if q.Limit > 0 && len(res.Groups) > q.Limit {
		res.Groups = res.Groups[:q.Limit]
	}
	return res, nil
}

// keyLess compares the keys of two visible rows. Bucket columns sort by
// bucket order (unbucketed last), numeric columns numerically and the rest
// lexically.
func keyLess(keys []*keyCol, ra, rb int) bool {
	for _, kc := range keys {
		ca, cb := kc.codes[ra], kc.codes[rb]
		if ca == cb {
			continue
		}
		switch {
		case kc.ordered:
			return ca < cb
		case kc.nums != nil:
			return kc.nums[ca] < kc.nums[cb]
		default:
			return kc.values[ca] < kc.values[cb]
		}
	}
	return false
}
