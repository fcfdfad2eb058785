package landcover

import "errors"

// Contract violations. Callers match them with errors.Is; the wrapped message
// carries the offending value.
var (
	ErrUnknownClass      = errors.New("landcover: unknown class id")
	ErrClassNameMismatch = errors.New("landcover: class name does not match id")
	ErrYearMismatch      = errors.New("landcover: sample year does not match table year")
	ErrEmptyTable        = errors.New("landcover: sample table is empty")
	ErrMissingYear       = errors.New("landcover: no sample table for year")
)
