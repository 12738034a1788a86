package engine

// Kind classifies a column for validation and for the operations it supports.
type Kind int

const (
	Categorical Kind = iota
	Numeric
)

func (k Kind) String() string {
	switch k {
	case Categorical:
		return "categorical"
	case Numeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// ColumnDef names one required column of a dataset.
type ColumnDef struct {
	Name string
	Kind Kind
}

// Schema is the ordered set of columns a dataset must provide.
// Column types are fixed by name, not inferred from the data.
type Schema []ColumnDef

// Lookup returns the definition of the named column.
func (s Schema) Lookup(name string) (ColumnDef, bool) {
	for _, c := range s {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}
