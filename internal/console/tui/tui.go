// Package tui is a tview/tcell-backed console.Port used by the mokctl-sim
// binary, in the teacher's cmd/tui idiom: a tview.Pages root primitive that
// modal widgets get pushed onto and popped off of
// (cmd/tui/layout/pages.go's PageManager), a small Dracula-derived color
// scheme (cmd/tui/styles/theme.go), and the QueueUpdateDraw-from-a-worker-
// goroutine pattern the teacher uses to mutate the UI from outside the
// tview event loop. Unlike the teacher's pass-cli TUI, this is a linear
// text-menu session (spec.md's single-threaded, blocking-on-operator-input
// control flow), not a multi-pane application, so there is exactly one
// modal on screen at a time rather than a stacked workspace.
package tui

import (
	"context"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"mokctl/internal/console"
)

// theme is a reduced Dracula-derived palette, grounded on
// cmd/tui/styles.DraculaTheme, kept to the handful of colors this
// single-pane menu actually uses.
var theme = struct {
	background tcell.Color
	border     tcell.Color
	text       tcell.Color
	accent     tcell.Color
}{
	background: tcell.NewRGBColor(40, 42, 54),
	border:     tcell.NewRGBColor(139, 233, 253),
	text:       tcell.NewRGBColor(248, 248, 242),
	accent:     tcell.NewRGBColor(241, 250, 140),
}

// Console is a console.Port backed by a running tview.Application. Run
// must be started on its own goroutine before any Port method is called;
// every Port method hands work to the UI goroutine via QueueUpdateDraw and
// blocks the caller until the operator responds.
type Console struct {
	app   *tview.Application
	pages *tview.Pages
}

// New constructs a Console with an empty page stack. Call Run to start the
// event loop (typically in its own goroutine) before issuing Port calls.
func New() *Console {
	app := tview.NewApplication()
	pages := tview.NewPages()
	pages.Box.SetBackgroundColor(theme.background)
	app.SetRoot(pages, true)
	return &Console{app: app, pages: pages}
}

// Run starts the tview event loop; it blocks until Close is called or the
// operator's terminal session ends.
func (c *Console) Run() error {
	return c.app.Run()
}

// Close stops the event loop.
func (c *Console) Close() {
	c.app.Stop()
}

var _ console.Port = (*Console)(nil)

const pageName = "mokctl-modal"

func (c *Console) showModal(p tview.Primitive, width, height int) {
	modal := centered(p, width, height)
	c.pages.AddAndSwitchToPage(pageName, modal, true)
}

func (c *Console) hideModal() {
	c.pages.RemovePage(pageName)
}

func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

func (c *Console) SelectionMenu(ctx context.Context, title string, items []string) (int, error) {
	type result struct {
		idx int
		err error
	}
	resultCh := make(chan result, 1)

	c.app.QueueUpdateDraw(func() {
		list := tview.NewList().ShowSecondaryText(false)
		list.SetBorder(true).SetTitle(" " + title + " ").SetBorderColor(theme.border)
		list.SetBackgroundColor(theme.background)
		list.SetMainTextColor(theme.text)
		list.SetSelectedTextColor(theme.background)
		list.SetSelectedBackgroundColor(theme.accent)

		for i, item := range items {
			idx := i
			list.AddItem(item, "", 0, func() {
				resultCh <- result{idx: idx}
				c.hideModal()
			})
		}
		list.SetDoneFunc(func() {
			resultCh <- result{err: console.ErrCanceled}
			c.hideModal()
		})
		c.showModal(list, 60, len(items)+2)
	})

	select {
	case r := <-resultCh:
		return r.idx, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *Console) YesNo(ctx context.Context, prompt string) (bool, error) {
	resultCh := make(chan bool, 1)

	c.app.QueueUpdateDraw(func() {
		modal := tview.NewModal().
			SetText(prompt).
			AddButtons([]string{"Yes", "No"}).
			SetDoneFunc(func(_ int, label string) {
				resultCh <- label == "Yes"
				c.hideModal()
			})
		modal.SetBackgroundColor(theme.background)
		modal.SetBorderColor(theme.border)
		c.pages.AddAndSwitchToPage(pageName, modal, true)
	})

	select {
	case v := <-resultCh:
		return v, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (c *Console) Alert(ctx context.Context, title string, lines []string) error {
	doneCh := make(chan struct{}, 1)

	c.app.QueueUpdateDraw(func() {
		view := tview.NewTextView().SetText(strings.Join(lines, "\n"))
		view.SetBorder(true).SetTitle(" " + title + " ").SetBorderColor(theme.border)
		view.SetBackgroundColor(theme.background)
		view.SetTextColor(theme.text)
		view.SetDoneFunc(func(_ tcell.Key) {
			doneCh <- struct{}{}
			c.hideModal()
		})
		c.showModal(view, 70, len(lines)+4)
	})

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Console) Notify(ctx context.Context, msg string) error {
	doneCh := make(chan struct{}, 1)

	c.app.QueueUpdateDraw(func() {
		modal := tview.NewModal().
			SetText(msg).
			AddButtons([]string{"OK"}).
			SetDoneFunc(func(int, string) {
				doneCh <- struct{}{}
				c.hideModal()
			})
		modal.SetBackgroundColor(theme.background)
		c.pages.AddAndSwitchToPage(pageName, modal, true)
	})

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Console) ReadPasswordLine(ctx context.Context, prompt string) ([]uint16, error) {
	type result struct {
		units []uint16
		err   error
	}
	resultCh := make(chan result, 1)

	c.app.QueueUpdateDraw(func() {
		field := tview.NewInputField().
			SetLabel(prompt).
			SetMaskCharacter('*').
			SetFieldWidth(40)
		field.SetBackgroundColor(theme.background)
		field.SetLabelColor(theme.text)
		field.SetFieldBackgroundColor(theme.background)
		field.SetDoneFunc(func(key tcell.Key) {
			switch key {
			case tcell.KeyEnter:
				units := toUTF16(field.GetText())
				if len(units) > console.MaxPasswordLineUnits {
					units = units[:console.MaxPasswordLineUnits]
				}
				resultCh <- result{units: units}
			case tcell.KeyEscape:
				resultCh <- result{err: console.ErrCanceled}
			default:
				return
			}
			c.hideModal()
		})
		frame := tview.NewFrame(field).SetBorders(0, 0, 0, 0, 1, 1)
		frame.SetBorder(true).SetBorderColor(theme.border)
		c.showModal(frame, 60, 5)
		c.app.SetFocus(field)
	})

	select {
	case r := <-resultCh:
		return r.units, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Console) ReadChar(ctx context.Context, prompt string) (rune, error) {
	type result struct {
		r   rune
		err error
	}
	resultCh := make(chan result, 1)

	c.app.QueueUpdateDraw(func() {
		view := tview.NewTextView().SetText(prompt)
		view.SetBorder(true).SetBorderColor(theme.border)
		view.SetBackgroundColor(theme.background)
		view.SetTextColor(theme.text)
		view.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
			switch event.Key() {
			case tcell.KeyRune:
				resultCh <- result{r: event.Rune()}
				c.hideModal()
				return nil
			case tcell.KeyEscape:
				resultCh <- result{err: console.ErrCanceled}
				c.hideModal()
				return nil
			}
			return event
		})
		c.showModal(view, 40, 3)
		c.app.SetFocus(view)
	})

	select {
	case r := <-resultCh:
		return r.r, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

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

