package engine

// Scope is the per-request query context: the loaded dataset and the
// filter currently selected for it.
type Scope struct {
	Base   *Frame
	Filter Predicate
}

// Frame applies the scope's filter to its base frame.
func (s Scope) Frame() (*Frame, error) {
	return Filter(s.Base, s.Filter)
}
