// Package varstore abstracts typed read/write/delete/append access to
// firmware variables, grounded on the production/test-double split
// internal/storage.FileSystem uses in the teacher repo: a narrow interface
// that every Action and the MenuController depend on, with an in-memory
// double for tests and a real backend for production.
package varstore

import (
	"context"

	"mokctl/internal/efi"
	"mokctl/internal/mokerr"
)

// Variable is the full contents VarStore.Get returns: the attribute
// bitmask the firmware reports for the variable and its raw bytes.
type Variable struct {
	Attrs efi.Attributes
	Data  []byte
}

// ErrNotFound is returned by Get when the named variable does not exist.
var ErrNotFound = mokerr.New(mokerr.Storage, "variable not found")

// Store is the interface every component in this module depends on instead
// of a global firmware runtime table (design note: no global mutable state
// beyond the variable store itself; inject a handle, not a singleton).
//
// Every method is synchronous: it either succeeds fully or leaves prior
// state intact. Context is accepted so the simulator can bound a
// fixture-driven run with a deadline; the production backend never
// cancels.
type Store interface {
	// Get reads the full contents of name, or returns ErrNotFound.
	Get(ctx context.Context, name string) (Variable, error)

	// Set overwrites name with data under attrs.
	Set(ctx context.Context, name string, attrs efi.Attributes, data []byte) error

	// Append merges data into name the way the firmware merges into an
	// existing signature-list-typed variable. Callers choose Append over
	// Set specifically so enrolling a new key cannot clobber prior MOK
	// entries.
	Append(ctx context.Context, name string, attrs efi.Attributes, data []byte) error

	// Delete removes name. Deleting an already-absent variable is not an
	// error: every staging variable must be clearable unconditionally at
	// the end of a session.
	Delete(ctx context.Context, name string) error
}
