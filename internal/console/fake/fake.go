// Package fake provides a scripted console.Port double for unit tests,
// grounded on the teacher's scripted-stdin test helpers
// (test/helpers/stdin.go) but queue-based rather than a single stdin
// string, since a Port exposes distinct typed prompts instead of one line
// reader.
package fake

import (
	"context"
	"fmt"

	"mokctl/internal/console"
)

// Console is a scripted console.Port. Queue expected answers before
// exercising code under test; each call pops the next entry of the
// matching kind and returns an error if that kind's queue is empty. Each
// kind has its own queue, so the order across kinds is not checked.
type Console struct {
	menuChoices   []int
	yesNoAnswers  []bool
	passwords     [][]uint16
	chars         []rune
	Alerts        []AlertCall
	Notifications []string

	// FailMenu, if set, is returned by the next SelectionMenu call.
	FailMenu error
}

// AlertCall records one Alert invocation for assertions.
type AlertCall struct {
	Title string
	Lines []string
}

// New returns an empty scripted console.
func New() *Console { return &Console{} }

// QueueMenuChoice queues the index SelectionMenu should return next.
func (c *Console) QueueMenuChoice(idx int) { c.menuChoices = append(c.menuChoices, idx) }

// QueueYesNo queues the next YesNo answer.
func (c *Console) QueueYesNo(v bool) { c.yesNoAnswers = append(c.yesNoAnswers, v) }

// QueuePassword queues the next ReadPasswordLine result, given as a plain
// string for test readability (converted to UTF-16 code units).
func (c *Console) QueuePassword(s string) {
	c.passwords = append(c.passwords, utf16Units(s))
}

// QueueChar queues the next ReadChar result.
func (c *Console) QueueChar(r rune) { c.chars = append(c.chars, r) }

func (c *Console) SelectionMenu(_ context.Context, _ string, items []string) (int, error) {
	if c.FailMenu != nil {
		err := c.FailMenu
		c.FailMenu = nil
		return 0, err
	}
	if len(c.menuChoices) == 0 {
		return 0, fmt.Errorf("fake console: no menu choice queued (items=%v)", items)
	}
	choice := c.menuChoices[0]
	c.menuChoices = c.menuChoices[1:]
	return choice, nil
}

func (c *Console) YesNo(_ context.Context, prompt string) (bool, error) {
	if len(c.yesNoAnswers) == 0 {
		return false, fmt.Errorf("fake console: no yes/no answer queued for %q", prompt)
	}
	answer := c.yesNoAnswers[0]
	c.yesNoAnswers = c.yesNoAnswers[1:]
	return answer, nil
}

func (c *Console) Alert(_ context.Context, title string, lines []string) error {
	c.Alerts = append(c.Alerts, AlertCall{Title: title, Lines: lines})
	return nil
}

func (c *Console) Notify(_ context.Context, msg string) error {
	c.Notifications = append(c.Notifications, msg)
	return nil
}

func (c *Console) ReadPasswordLine(_ context.Context, prompt string) ([]uint16, error) {
	if len(c.passwords) == 0 {
		return nil, fmt.Errorf("fake console: no password queued for %q", prompt)
	}
	pw := c.passwords[0]
	c.passwords = c.passwords[1:]
	return pw, nil
}

func (c *Console) ReadChar(_ context.Context, prompt string) (rune, error) {
	if len(c.chars) == 0 {
		return 0, fmt.Errorf("fake console: no char queued for %q", prompt)
	}
	r := c.chars[0]
	c.chars = c.chars[1:]
	return r, nil
}

func utf16Units(s string) []uint16 {
	var out []uint16
	for _, r := range s {
		if r <= 0xFFFF {
			out = append(out, uint16(r))
			continue
		}
		r -= 0x10000
		out = append(out, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
	}
	return out
}

var _ console.Port = (*Console)(nil)
