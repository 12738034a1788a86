package engine

// Predicate maps a column to its accepted values. A row passes when, for
// every constrained column, its value is in the accepted set (AND across
// columns, OR within one). A column absent from the map is unconstrained; a
// column present with no accepted values matches nothing.
type Predicate map[string][]string

// IsEmpty reports whether the predicate constrains nothing.
func (p Predicate) IsEmpty() bool {
	return len(p) == 0
}

// Filter returns the rows of f satisfying p. An empty predicate returns f
// itself. Accepted values that never occur simply match nothing.
func Filter(f *Frame, p Predicate) (*Frame, error) {
	type constraint struct {
		col    *CategoricalColumn
		accept []bool // indexed by dictionary ID
	}

	var cons []constraint
	for name, vals := range p {
		col, ok := f.categorical(name)
		if !ok {
			if _, known := f.Kind(name); known {
				return nil, &FilterError{Column: name, Err: ErrNotCategorical}
			}
			return nil, &FilterError{Column: name, Err: ErrUnknownColumn}
		}
		want := make(map[string]bool, len(vals))
		for _, v := range vals {
			want[v] = true
		}
		accept := make([]bool, len(col.Dict))
		for id, v := range col.Dict {
			accept[id] = want[v]
		}
		cons = append(cons, constraint{col: col, accept: accept})
	}
	if len(cons) == 0 {
		return f, nil
	}

	// Single pass over the visible rows
	n := f.Len()
	rows := make([]int32, 0, n)
	for i := 0; i < n; i++ {
		b := f.base(i)
		pass := true
		for _, c := range cons {
			if !c.accept[c.col.IDs[b]] {
				pass = false
				break
			}
		}
		if pass {
			rows = append(rows, int32(b))
		}
	}

	return &Frame{
		store:        f.store,
		rows:         rows,
		derived:      f.derived,
		derivedOrder: f.derivedOrder,
	}, nil
}
