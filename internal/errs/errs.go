// Package errs defines the failure kinds reported by the trainer.
//
// Every failure is fatal for a run: there are no retries and no degraded
// modes. Callers classify a failure with errors.As.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// NetworkError reports a remote resource that could not be retrieved.
type NetworkError struct {
	URL string
	Err error
}

// Network wraps err as a NetworkError for url.
func Network(url string, err error) error {
	return errors.WithStack(&NetworkError{URL: url, Err: err})
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IOError reports a failed cache or output file operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// IO wraps err as an IOError for the given operation and path.
func IO(op, path string, err error) error {
	return errors.WithStack(&IOError{Op: op, Path: path, Err: err})
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ShapeError reports data whose size does not match what was expected,
// usually a corrupt or unexpected source file.
type ShapeError struct {
	What string
	Want string
	Got  string
}

// Shape returns a ShapeError describing what, with the expected and actual
// sizes already formatted.
func Shape(what, want, got string) error {
	return errors.WithStack(&ShapeError{What: what, Want: want, Got: got})
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.What, e.Want, e.Got)
}
