// Package requests discovers the set of pending operator requests staged
// by the shim into firmware variables, capturing each variable's full
// contents for MenuController to build entries from. MenuController calls
// Discover again before each menu round, and Actions read the variables
// they need from VarStore themselves rather than from a Set. Grounded on
// the teacher's internal/vault.VaultService pattern of loading state into
// a struct.
package requests

import (
	"context"

	"mokctl/internal/efi"
	"mokctl/internal/varstore"
)

// Set is the cached presence/contents of every staging and auth variable
// spec.md §4.5's MenuController dispatches on.
type Set struct {
	MokNew     *varstore.Variable
	MokAuth    *varstore.Variable
	MokDel     *varstore.Variable
	MokDelAuth *varstore.Variable
	MokSB      *varstore.Variable
	MokPW      *varstore.Variable
	MokPWStore *varstore.Variable
}

// Discover reads every staging/auth variable from store, leaving the
// corresponding field nil when the variable is absent. A Get failure other
// than ErrNotFound is propagated; a missing variable is not an error.
func Discover(ctx context.Context, store varstore.Store) (Set, error) {
	var s Set
	fields := []struct {
		name string
		dst  **varstore.Variable
	}{
		{efi.MokNew, &s.MokNew},
		{efi.MokAuth, &s.MokAuth},
		{efi.MokDel, &s.MokDel},
		{efi.MokDelAuth, &s.MokDelAuth},
		{efi.MokSB, &s.MokSB},
		{efi.MokPW, &s.MokPW},
		{efi.MokPWStore, &s.MokPWStore},
	}

	for _, f := range fields {
		v, err := store.Get(ctx, f.name)
		if err != nil {
			if err == varstore.ErrNotFound {
				continue
			}
			return Set{}, err
		}
		cp := v
		*f.dst = &cp
	}

	return s, nil
}

// HasEnroll reports whether an "Enroll MOK" entry should appear: MokNew
// present, per spec.md §4.5.
func (s Set) HasEnroll() bool {
	return s.MokNew != nil
}

// HasReset reports whether a "Reset MOK" entry should appear: MokAuth
// present without MokNew, per spec.md §4.5.
func (s Set) HasReset() bool {
	return s.MokAuth != nil && s.MokNew == nil
}

// HasDelete reports whether a "Delete MOK" entry should appear: MokDel or
// MokDelAuth present.
func (s Set) HasDelete() bool {
	return s.MokDel != nil || s.MokDelAuth != nil
}

// HasChangeSecureBoot reports whether a "Change Secure Boot state" entry
// should appear: MokSB present.
func (s Set) HasChangeSecureBoot() bool {
	return s.MokSB != nil
}

// HasSetPassword reports whether a "Set MOK password" entry should appear:
// MokPW present.
func (s Set) HasSetPassword() bool {
	return s.MokPW != nil
}

// PasswordGateRequired reports whether the PasswordGate applies (spec.md
// §4.5): false when MokPWStore is absent; true when it is runtime-accessible,
// whatever its size, so the caller can treat it as Tamper; otherwise true
// exactly when it is well-sized, in which case the caller requires
// AuthEngine.Verify before the menu is shown. wellSized is injected by the
// caller (authrecord.Decode's length check) rather than duplicated here.
func (s Set) PasswordGateRequired(wellSized func([]byte) bool) bool {
	if s.MokPWStore == nil {
		return false
	}
	if s.MokPWStore.Attrs&efi.RuntimeAccess != 0 {
		return true // caller treats this as a Tamper condition, not a skip
	}
	return wellSized(s.MokPWStore.Data)
}

// staging lists every variable name a session must unconditionally clear
// on exit, per spec.md §4.5: "the controller deletes every staging
// variable and both auth variables."
var staging = []string{
	efi.MokNew, efi.MokAuth, efi.MokDel, efi.MokDelAuth, efi.MokSB, efi.MokPW,
}

// ClearAll deletes every staging and auth variable, ignoring
// already-absent ones, per the MenuController exit guarantee. MokPWStore
// is intentionally excluded: it is the persisted password record, not a
// one-shot staging request.
func ClearAll(ctx context.Context, store varstore.Store) error {
	for _, name := range staging {
		if err := store.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
