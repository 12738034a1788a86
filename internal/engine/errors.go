package engine

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownColumn  = errors.New("unknown column")
	ErrMissingColumn  = errors.New("missing required column")
	ErrNotNumeric     = errors.New("column is not numeric")
	ErrNotCategorical = errors.New("column is not categorical")
	ErrNoGroupBy      = errors.New("group-by list is empty")
	ErrNoMetric       = errors.New("metric column is required")
	ErrUnknownOp      = errors.New("unknown aggregation op")
	ErrBadEdges       = errors.New("bucket edges must be strictly increasing")
	ErrLabelCount     = errors.New("bucket label count must be one less than edge count")
	ErrBadLabel       = errors.New("bucket labels must be unique and non-empty")
)

// LoadError reports a dataset that could not be read or validated.
// Line is the 1-based line in the source file, 0 when not tied to a line.
type LoadError struct {
	Path   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *LoadError) Error() string {
	msg := "load"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(": line %d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(": column %q", e.Column)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(": value %q", e.Value)
	}
	return msg + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// FilterError reports a predicate that references an unusable column.
type FilterError struct {
	Column string
	Err    error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter on %q: %v", e.Column, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// AggregationError reports an invalid aggregation request.
type AggregationError struct {
	Column string
	Op     Op
	Err    error
}

func (e *AggregationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("aggregate %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("aggregate %s on %q: %v", e.Op, e.Column, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// BucketError reports a malformed bucket spec or an unbucketable column.
type BucketError struct {
	Column string
	Err    error
}

func (e *BucketError) Error() string {
	return fmt.Sprintf("bucketize %q: %v", e.Column, e.Err)
}

func (e *BucketError) Unwrap() error { return e.Err }

// IsQueryError reports whether err was caused by a bad filter, aggregation or
// bucket request rather than by the data or the environment.
func IsQueryError(err error) bool {
	var fe *FilterError
	var ae *AggregationError
	var be *BucketError
	return errors.As(err, &fe) || errors.As(err, &ae) || errors.As(err, &be)
}
