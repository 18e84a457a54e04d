package blogcas

import (
	"errors"
	"fmt"
)

var (
	ErrNoProvider  = errors.New("blogcas: provider is required")
	ErrNoNamespace = errors.New("blogcas: namespace is required")
)

// InvalidateError is returned when both the generation bump and the delete
// failed for a name. Either one alone still prevents stale reads and is only
// reported through Hooks and Logger.
type InvalidateError struct {
	Name    string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q failed: gen bump and delete failed: bump=%v; delete=%v",
			e.Name, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Name, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Name, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Name)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
