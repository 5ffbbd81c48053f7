// Package scripted loads a JSON file of canned console answers and plays
// them back as a console.Port, for mokctl-sim regression runs that must
// exercise a full menu session unattended (CI, scenario replay) instead of
// waiting on a live operator. It is the on-disk counterpart to
// internal/console/fake's in-process scripted double, grounded on the same
// "queue of expected answers, fail loudly on an empty or misordered queue"
// shape, but loaded once from a file at process start instead of built up
// by test code.
package scripted

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"mokctl/internal/console"
)

// Step is one scripted answer. Kind selects which field is read; exactly
// one of MenuChoice/YesNo/Password/Char is meaningful for a given Kind.
type Step struct {
	Kind        string `json:"kind"` // "menu", "yesno", "password", "char"
	MenuChoice  int    `json:"menu_choice,omitempty"`
	YesNoAnswer bool   `json:"yes_no,omitempty"`
	Password    string `json:"password,omitempty"`
	Char        string `json:"char,omitempty"`
}

// Console plays back a fixed sequence of Steps as a console.Port. Alert
// and Notify are not scripted; they're recorded in an in-memory log (see
// Log) and always succeed immediately.
type Console struct {
	steps []Step
	pos   int
	log   []string
}

// Load reads a JSON array of Steps from path.
func Load(path string) (*Console, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	var steps []Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	return &Console{steps: steps}, nil
}

var _ console.Port = (*Console)(nil)

func (c *Console) next(kind string) (Step, error) {
	if c.pos >= len(c.steps) {
		return Step{}, fmt.Errorf("scripted console: ran out of steps (wanted %s)", kind)
	}
	s := c.steps[c.pos]
	if s.Kind != kind {
		return Step{}, fmt.Errorf("scripted console: step %d is %q, wanted %q", c.pos, s.Kind, kind)
	}
	c.pos++
	return s, nil
}

func (c *Console) SelectionMenu(_ context.Context, _ string, items []string) (int, error) {
	s, err := c.next("menu")
	if err != nil {
		return 0, err
	}
	if s.MenuChoice < 0 || s.MenuChoice >= len(items) {
		return 0, fmt.Errorf("scripted console: menu choice %d out of range (%d items)", s.MenuChoice, len(items))
	}
	return s.MenuChoice, nil
}

func (c *Console) YesNo(_ context.Context, _ string) (bool, error) {
	s, err := c.next("yesno")
	if err != nil {
		return false, err
	}
	return s.YesNoAnswer, nil
}

func (c *Console) Alert(_ context.Context, title string, lines []string) error {
	c.log = append(c.log, fmt.Sprintf("[alert] %s: %v", title, lines))
	return nil
}

func (c *Console) Notify(_ context.Context, msg string) error {
	c.log = append(c.log, "[notify] "+msg)
	return nil
}

func (c *Console) ReadPasswordLine(_ context.Context, _ string) ([]uint16, error) {
	s, err := c.next("password")
	if err != nil {
		return nil, err
	}
	return toUTF16(s.Password), nil
}

func (c *Console) ReadChar(_ context.Context, _ string) (rune, error) {
	s, err := c.next("char")
	if err != nil {
		return 0, err
	}
	for _, r := range s.Char {
		return r, nil
	}
	return 0, fmt.Errorf("scripted console: empty char step")
}

// Log returns every Alert/Notify message recorded so far, for a test or
// the run command to print after the session ends.
func (c *Console) Log() []string { return c.log }

func toUTF16(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		if r <= 0xFFFF {
			units = append(units, uint16(r))
			continue
		}
		r -= 0x10000
		units = append(units, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
	}
	return units
}
