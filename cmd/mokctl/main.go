// Command mokctl is the production boot-services application: no
// arguments, no environment, talking to real firmware variables through
// github.com/canonical/go-efilib. It performs exactly one session -- load
// pending requests, gate on the MOK password, loop the menu, commit at
// most one Action, request a warm reset -- then exits with a status code
// the firmware's boot manager maps back to SUCCESS/ACCESS_DENIED/
// OUT_OF_RESOURCES/ABORTED (spec.md §6).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"mokctl/internal/actions"
	"mokctl/internal/authengine"
	"mokctl/internal/console/plain"
	"mokctl/internal/fileenroll"
	"mokctl/internal/menu"
	"mokctl/internal/mokerr"
	"mokctl/internal/reboot"
	"mokctl/internal/rng"
	"mokctl/internal/shimlock"
	"mokctl/internal/varstore"
)

// Exit codes the firmware's boot manager maps back to its own status
// namespace. These values are this image's own convention, not part of
// the UEFI status code space itself; go-efilib exposes variable access
// only, not a way to return a native EFI_STATUS from a Go process.
const (
	exitSuccess        = 0
	exitAccessDenied   = 1
	exitOutOfResources = 2
	exitAborted        = 3
)

// espRoot is where this image expects the EFI System Partition to be
// mounted when FileEnroll's directory browser runs. Firmware boot
// services expose volumes through EFI_SIMPLE_FILE_SYSTEM_PROTOCOL, which
// go-efilib does not wrap; this path is the mount point a companion boot
// loader or an earlier stage is expected to have bound the ESP to before
// this image runs. Documented in DESIGN.md as an open constraint rather
// than a fabricated binding.
const espRoot = "/boot/efi"

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	if err := rng.Seed(); err != nil {
		fmt.Fprintln(os.Stderr, "mokctl: failed to seed RNG:", err)
		return exitOutOfResources
	}

	store := varstore.NewEFIStore()
	c := plain.New(os.Stdin, os.Stdout, int(os.Stdin.Fd()))
	auth := authengine.New(c)
	shim := shimlock.SoftwareHasher{}
	eng := actions.New(store, c, auth, shim)
	browser := fileenroll.New(os.DirFS(espRoot), c, eng)
	ctrl := menu.New(store, c, auth, eng, browser.Enroll)

	runErr := ctrl.Run(ctx)

	switch {
	case runErr == nil:
		return exitSuccess
	case errors.Is(runErr, actions.Reset):
		// The durable write this reset follows has already committed, so a
		// reset failure is reported but does not change the exit status: a
		// firmware that honors WarmReset never returns from it, and one that
		// doesn't leaves the operator to reboot manually into an already-
		// committed state.
		if err := (reboot.Production{}).WarmReset(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "mokctl: warm reset failed:", err)
		}
		return exitSuccess
	case mokerr.IsAccessDenied(runErr), mokerr.IsTamper(runErr):
		return exitAccessDenied
	case mokerr.Is(runErr, mokerr.OutOfResources):
		return exitOutOfResources
	default:
		fmt.Fprintln(os.Stderr, "mokctl:", runErr)
		return exitAborted
	}
}
