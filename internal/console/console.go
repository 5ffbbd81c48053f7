// Package console defines the text-console boundary spec.md §2 and §6
// treat as an external collaborator: the selection menu, yes/no box, alert
// box, and password line editor widget set, plus the single-character
// reader the positional Secure-Boot challenge needs. Nothing in this
// module implements the real widget rendering against firmware text-output
// protocols; internal/console/tui provides a tview-backed implementation
// for the simulator binary, and internal/console/plain provides a minimal
// ANSI fallback good enough for a UEFI shell or serial console.
package console

import (
	"context"
	"errors"
)

// ErrCanceled is returned by a Port implementation when the operator backs
// out of a prompt via an escape/cancel gesture rather than answering it
// (e.g. Escape in the tui backend). Callers wrap it as a Storage error like
// any other console failure; it is not treated as a YesNo decline.
var ErrCanceled = errors.New("console: operator canceled")

// Port is the interface every other package depends on instead of the
// concrete widget set, mirroring the teacher's FileSystem/KeychainService
// injection pattern.
type Port interface {
	// SelectionMenu presents items under title and returns the chosen
	// index. Implementations block until the operator chooses.
	SelectionMenu(ctx context.Context, title string, items []string) (int, error)

	// YesNo presents a yes/no confirmation and returns the operator's
	// choice. A UserAbort-worthy decline is signaled by a false return,
	// not an error; callers decide what a decline means.
	YesNo(ctx context.Context, prompt string) (bool, error)

	// Alert renders a titled, multi-line informational box the operator
	// must dismiss before continuing (used by CertView to show a single
	// entry's details, and by the Tamper path's integrity warning).
	Alert(ctx context.Context, title string, lines []string) error

	// Notify renders a single-line transient message (e.g. "No MOK keys
	// found").
	Notify(ctx context.Context, msg string) error

	// ReadPasswordLine reads a buffered line up to 256 UTF-16 code units
	// with backspace support and no echo. Implementations do not reject
	// empty input; AuthEngine does that so the retry-counting policy stays
	// in one place.
	ReadPasswordLine(ctx context.Context, prompt string) ([]uint16, error)

	// ReadChar reads a single rune with no echo, used by the positional
	// Secure-Boot challenge to prompt for one character at a time.
	ReadChar(ctx context.Context, prompt string) (rune, error)
}

// MaxPasswordLineUnits is the UTF-16 code unit cap spec.md §4.3 places on
// password capture.
const MaxPasswordLineUnits = 256
