package engine

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow/array"
)

// ColumnStore holds the dataset in struct-of-arrays form.
// Numeric columns are Arrow Float64 arrays; categorical columns are
// dictionary encoded. A store is never modified after it is built.
type ColumnStore struct {
	schema      Schema
	rows        int
	numeric     map[string]*array.Float64
	categorical map[string]*CategoricalColumn
}

// CategoricalColumn is a dictionary-encoded column: IDs[i] indexes Dict.
// When Ordered is set the dictionary order is the semantic order of the
// values (bucket columns), otherwise it is first-appearance order.
type CategoricalColumn struct {
	IDs     []int32
	Dict    []string
	Ordered bool
}

// Value returns the decoded value at row i.
func (c *CategoricalColumn) Value(i int) string {
	return c.Dict[c.IDs[i]]
}

// Schema returns the schema the store was loaded with.
func (cs *ColumnStore) Schema() Schema { return cs.schema }

// Len returns the number of rows.
func (cs *ColumnStore) Len() int { return cs.rows }

// Frame returns a view over every row of the store.
func (cs *ColumnStore) Frame() *Frame {
	return &Frame{store: cs}
}

// Release frees the Arrow buffers backing the numeric columns.
func (cs *ColumnStore) Release() {
	for _, arr := range cs.numeric {
		arr.Release()
	}
}

// Frame is an immutable view of a ColumnStore: an optional row selection
// plus derived categorical columns. Filter and Bucketize return new frames
// and never modify the receiver, so a Frame may be shared between goroutines.
type Frame struct {
	store *ColumnStore
	rows  []int32 // nil selects every row

	// Derived columns are aligned with store rows, not with the selection.
	derived      map[string]*CategoricalColumn
	derivedOrder []string
}

// Len returns the number of visible rows.
func (f *Frame) Len() int {
	if f.rows == nil {
		return f.store.rows
	}
	return len(f.rows)
}

// Store returns the underlying store.
func (f *Frame) Store() *ColumnStore { return f.store }

func (f *Frame) base(i int) int {
	if f.rows == nil {
		return i
	}
	return int(f.rows[i])
}

// Columns lists schema columns followed by derived columns.
func (f *Frame) Columns() []string {
	cols := f.store.schema.Names()
	for _, name := range f.derivedOrder {
		if _, ok := f.store.schema.Lookup(name); !ok {
			cols = append(cols, name)
		}
	}
	return cols
}

// Kind reports the kind of the named column.
func (f *Frame) Kind(name string) (Kind, bool) {
	if _, ok := f.derived[name]; ok {
		return Categorical, true
	}
	def, ok := f.store.schema.Lookup(name)
	return def.Kind, ok
}

func (f *Frame) categorical(name string) (*CategoricalColumn, bool) {
	if c, ok := f.derived[name]; ok {
		return c, true
	}
	c, ok := f.store.categorical[name]
	return c, ok
}

func (f *Frame) numeric(name string) (*array.Float64, bool) {
	if _, ok := f.derived[name]; ok {
		return nil, false
	}
	arr, ok := f.store.numeric[name]
	return arr, ok
}

// Float64s returns the visible values of a numeric column in row order.
func (f *Frame) Float64s(name string) ([]float64, error) {
	arr, ok := f.numeric(name)
	if !ok {
		if _, known := f.Kind(name); known {
			return nil, ErrNotNumeric
		}
		return nil, ErrUnknownColumn
	}
	out := make([]float64, f.Len())
	for i := range out {
		out[i] = arr.Value(f.base(i))
	}
	return out, nil
}

// Strings returns the visible values of any column in row order.
// Numeric values use the shortest exact decimal formatting.
func (f *Frame) Strings(name string) ([]string, error) {
	out := make([]string, f.Len())
	if c, ok := f.categorical(name); ok {
		for i := range out {
			out[i] = c.Value(f.base(i))
		}
		return out, nil
	}
	arr, ok := f.numeric(name)
	if !ok {
		return nil, ErrUnknownColumn
	}
	for i := range out {
		out[i] = formatFloat(arr.Value(f.base(i)))
	}
	return out, nil
}

// UniqueValues returns the distinct visible values of a column in
// first-appearance order, for populating filter choices.
func (f *Frame) UniqueValues(name string) ([]string, error) {
	if c, ok := f.categorical(name); ok {
		seen := make([]bool, len(c.Dict))
		var out []string
		for i, n := 0, f.Len(); i < n; i++ {
			id := c.IDs[f.base(i)]
			if !seen[id] {
				seen[id] = true
				out = append(out, c.Dict[id])
			}
		}
		return out, nil
	}
	vals, err := f.Strings(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// Row returns the visible row i with one value per entry of Columns.
func (f *Frame) Row(i int) []string {
	cols := f.Columns()
	b := f.base(i)
	out := make([]string, len(cols))
	for j, name := range cols {
		if c, ok := f.categorical(name); ok {
			out[j] = c.Value(b)
		} else if arr, ok := f.numeric(name); ok {
			out[j] = formatFloat(arr.Value(b))
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
