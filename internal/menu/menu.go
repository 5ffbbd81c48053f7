// Package menu implements the MenuController state machine: it gates on
// the MOK password, builds the dynamic entry list from the pending
// requests.Set, dispatches the operator's choice to internal/actions, and
// guarantees every staging variable is cleared on exit regardless of how
// the session ends. Grounded on the teacher's cmd/tui.go launchTUI
// sequencing (unlock gate -> build app -> run -> restore terminal on every
// exit path) reduced to a single-threaded text-menu loop.
package menu

import (
	"context"
	"errors"

	"mokctl/internal/actions"
	"mokctl/internal/authengine"
	"mokctl/internal/authrecord"
	"mokctl/internal/console"
	"mokctl/internal/efi"
	"mokctl/internal/mokerr"
	"mokctl/internal/requests"
	"mokctl/internal/varstore"
)

// entry pairs a menu label with the action it dispatches to.
type entry struct {
	label string
	run   func(ctx context.Context, c *Controller) error
}

// Controller drives one session: load requests, gate on the password, loop
// the menu until an Action commits (or the operator chooses to continue
// booting), then clear staging state.
type Controller struct {
	store   varstore.Store
	console console.Port
	auth    *authengine.Engine
	actions *actions.Engine

	// fileEnroll is injected rather than imported directly: internal/menu
	// would otherwise depend on internal/fileenroll, which depends back on
	// internal/actions -- this keeps the dependency graph a DAG the way the
	// teacher's cmd package depends down into internal/vault, never the
	// reverse.
	fileEnroll func(ctx context.Context, asHash bool) error
}

// New builds a Controller over the given collaborators. fileEnroll drives
// the ESP directory browser. It may be nil (tests that don't exercise
// FileEnroll pass nil): the two "Enroll key/hash from disk" entries are
// still listed, and choosing one then fails with a Parse error.
func New(store varstore.Store, c console.Port, auth *authengine.Engine, a *actions.Engine, fileEnroll func(ctx context.Context, asHash bool) error) *Controller {
	return &Controller{store: store, console: c, auth: auth, actions: a, fileEnroll: fileEnroll}
}

// Run executes one full session: PasswordGate, then the Menu/Action loop
// until a commit or a "Continue boot" choice, then the unconditional
// staging cleanup spec.md §4.5 requires on every exit path. The returned
// error is actions.Reset on a successful commit, nil on a plain
// continue-boot exit, or the first unrecovered failure.
func (c *Controller) Run(ctx context.Context) error {
	defer func() {
		_ = requests.ClearAll(context.Background(), c.store)
	}()

	reqs, err := requests.Discover(ctx, c.store)
	if err != nil {
		return err
	}

	if err := c.passwordGate(ctx, reqs); err != nil {
		return err
	}

	for {
		reqs, err = requests.Discover(ctx, c.store)
		if err != nil {
			return err
		}

		entries := c.buildMenu(reqs)
		labels := make([]string, len(entries))
		for i, e := range entries {
			labels[i] = e.label
		}

		choice, err := c.console.SelectionMenu(ctx, "MOK Management", labels)
		if err != nil {
			return mokerr.Wrap(mokerr.Storage, "read menu selection", err)
		}
		if choice < 0 || choice >= len(entries) {
			return mokerr.New(mokerr.Parse, "menu selection out of range")
		}

		if entries[choice].label == continueBootLabel {
			return nil
		}

		err = entries[choice].run(ctx, c)
		if err == nil {
			continue
		}
		if isReset(err) {
			return err
		}
		// A declined confirmation or a failed verification returns to the
		// menu rather than ending the session -- commit (Reset) or any other
		// failure (Storage, Parse, Crypto, Tamper, ...) ends it.
		if mokerr.IsUserAbort(err) || mokerr.IsAccessDenied(err) {
			_ = c.console.Notify(ctx, err.Error())
			continue
		}
		return err
	}
}

const continueBootLabel = "Continue boot"

// passwordGate implements spec.md §4.5's PasswordGate state: if MokPWStore
// exists, is well-sized, and is not runtime-accessible, require
// AuthEngine.Verify before the menu is ever shown. A runtime-accessible
// MokPWStore is a Tamper condition, not a skip.
func (c *Controller) passwordGate(ctx context.Context, reqs requests.Set) error {
	wellSized := func(b []byte) bool {
		_, err := authrecord.Decode(b)
		return err == nil
	}
	if !reqs.PasswordGateRequired(wellSized) {
		return nil
	}
	if reqs.MokPWStore.Attrs&efi.RuntimeAccess != 0 {
		return mokerr.New(mokerr.Tamper, "MokPWStore carries runtime-access attribute")
	}

	record, err := authrecord.Decode(reqs.MokPWStore.Data)
	if err != nil {
		return err
	}
	return c.auth.Verify(ctx, "MOK password: ", record, nil)
}

// buildMenu constructs the dynamic entry list per spec.md §4.5: the three
// always-present entries, then each conditional entry gated on the
// corresponding staging variable's presence.
func (c *Controller) buildMenu(reqs requests.Set) []entry {
	entries := []entry{
		{label: continueBootLabel, run: nil},
		{label: "Enroll key from disk", run: func(ctx context.Context, c *Controller) error {
			return c.runFileEnroll(ctx, false)
		}},
		{label: "Enroll hash from disk", run: func(ctx context.Context, c *Controller) error {
			return c.runFileEnroll(ctx, true)
		}},
	}

	if reqs.HasEnroll() {
		entries = append(entries, entry{label: "Enroll MOK", run: func(ctx context.Context, c *Controller) error {
			return c.actions.Enroll(ctx, true)
		}})
	} else if reqs.HasReset() {
		entries = append(entries, entry{label: "Reset MOK", run: func(ctx context.Context, c *Controller) error {
			return c.actions.Reset(ctx)
		}})
	}

	if reqs.HasDelete() {
		entries = append(entries, entry{label: "Delete MOK", run: func(ctx context.Context, c *Controller) error {
			return c.actions.Delete(ctx)
		}})
	}

	if reqs.HasChangeSecureBoot() {
		entries = append(entries, entry{label: "Change Secure Boot state", run: func(ctx context.Context, c *Controller) error {
			return c.actions.ChangeSecureBoot(ctx)
		}})
	}

	if reqs.HasSetPassword() {
		entries = append(entries, entry{label: "Set MOK password", run: func(ctx context.Context, c *Controller) error {
			return c.actions.SetPassword(ctx)
		}})
	}

	return entries
}

func (c *Controller) runFileEnroll(ctx context.Context, asHash bool) error {
	if c.fileEnroll == nil {
		return mokerr.New(mokerr.Parse, "file enrollment is not available")
	}
	return c.fileEnroll(ctx, asHash)
}

func isReset(err error) bool {
	return errors.Is(err, actions.Reset)
}
