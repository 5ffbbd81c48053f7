// Package reboot requests the warm reset spec.md's control flow ends on
// after a successful commit: "a reset occurs only after durable variables
// are written" (§5). Modeled as an injected Port rather than a direct
// firmware call, for the same reason internal/varstore.Store is injected
// rather than called as a package-level global (design note: no global
// mutable state, inject a handle).
package reboot

import (
	"context"

	"mokctl/internal/mokerr"
)

// Port requests a warm system reset: reboot without a full power cycle,
// preserving RAM training, re-entering the firmware boot path.
type Port interface {
	WarmReset(ctx context.Context) error
}

// Noop is a Port that does nothing. Neither binary calls it: a session
// driven by mokctl-sim ends by printing the outcome and exiting, with no
// reset Port involved.
type Noop struct{}

func (Noop) WarmReset(context.Context) error { return nil }

// Production is the boot-services implementation. go-efilib (this
// module's only binding onto firmware state) is a variable-access
// library: it wraps GetVariable/SetVariable/QueryVariableInfo, not
// RuntimeServices.ResetSystem, so there is no verified, real binding to
// call here rather than a guessed one. WarmReset reports that gap as a
// mokerr OutOfResources error rather than fabricating a call. Per spec.md §5's ordering guarantee, a
// failure here does not undo anything: the durable write this reset
// follows has already committed, and the staging cleanup that runs
// before it means the next boot simply continues without reentering the
// action that just committed.
type Production struct{}

func (Production) WarmReset(context.Context) error {
	return mokerr.New(mokerr.OutOfResources, "no firmware ResetSystem binding is wired; reboot manually")
}
