package table

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Error taxonomy shared by every pipeline stage.
var (
	ErrFileNotFound  = eris.New("file not found")
	ErrParse         = eris.New("parse error")
	ErrMissingColumn = eris.New("missing column")
	ErrNotNumeric    = eris.New("column is not numeric")
	ErrWrite         = eris.New("write error")
)

// IOError tags an underlying I/O or decode failure with a taxonomy sentinel.
// Both stay reachable through errors.Is.
type IOError struct {
	Kind error
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
