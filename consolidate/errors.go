package consolidate

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to test for them; they are returned wrapped
// with errs.WrapInvalid so errs.IsInvalid also holds.
var (
	ErrInvalidFolderID   = errors.New("invalid folder id")
	ErrDuplicateFolderID = errors.New("duplicate folder id")
	ErrMissingRoot       = errors.New("top-level document has no root entity")
	ErrMissingDescriptor = errors.New("top-level document has no metadata descriptor")

	// ErrLoaderDisabled is returned by NoOpLoader.
	ErrLoaderDisabled = errors.New("subcrate loading disabled")
)

// LoadError reports a subcrate that could not be loaded.
type LoadError struct {
	SubcrateID      string
	ParentNamespace string
	Err             error
}

func (e *LoadError) Error() string {
	if e.ParentNamespace == "" {
		return fmt.Sprintf("load subcrate %q: %v", e.SubcrateID, e.Err)
	}
	return fmt.Sprintf("load subcrate %q in %q: %v", e.SubcrateID, e.ParentNamespace, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
