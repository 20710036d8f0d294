package store

import (
	"errors"
	"fmt"
)

// ErrCorruptStore marks backing data that could not be decoded.
var ErrCorruptStore = errors.New("corrupt store")

// CorruptStoreError describes malformed data in a collection.
// ID is zero when the whole collection failed to decode.
type CorruptStoreError struct {
	Collection string
	ID         uint64
	Err        error
}

func (e *CorruptStoreError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("corrupt store: collection %s entry %d: %v", e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("corrupt store: collection %s: %v", e.Collection, e.Err)
}

// Unwrap exposes both ErrCorruptStore and the decode error.
func (e *CorruptStoreError) Unwrap() []error {
	return []error{ErrCorruptStore, e.Err}
}

// IsCorrupt reports whether err was caused by malformed backing data.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptStore)
}
