// Package plain is a minimal ANSI text-console implementation of
// console.Port, good enough to run the menu over a UEFI shell or a serial
// console where no graphics and no widget toolkit are available -- the
// production mokctl binary's fallback when it isn't handed a richer
// console driver by the boot environment. It reads raw bytes from stdin
// with golang.org/x/term the same way the teacher's cmd/root.go reads the
// vault unlock passphrase (term.ReadPassword over the controlling tty),
// generalized to the console.Port widget set spec.md treats as external.
package plain

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"mokctl/internal/console"
	"mokctl/internal/mokerr"
)

// titleColor and promptColor match the teacher's cmd/doctor.go convention
// of building reusable color.SprintFunc values rather than calling
// color.New at every print site.
var (
	titleColor = color.New(color.Bold).SprintFunc()
	alertColor = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// Console is a line-oriented console.Port over the given reader/writer,
// using raw-mode reads for password and single-character prompts when fd
// is a real terminal.
type Console struct {
	in  io.Reader
	buf *bufio.Reader
	out io.Writer
	fd  int
	raw bool
}

// New returns a Console reading from in and writing to out. fd is the file
// descriptor backing in (e.g. int(os.Stdin.Fd())); when term.IsTerminal(fd)
// is true, password and character prompts switch stdin to raw mode for the
// duration of the read so keystrokes are never echoed.
func New(in io.Reader, out io.Writer, fd int) *Console {
	return &Console{in: in, buf: bufio.NewReader(in), out: out, fd: fd, raw: term.IsTerminal(fd)}
}

var _ console.Port = (*Console)(nil)

func (c *Console) SelectionMenu(ctx context.Context, title string, items []string) (int, error) {
	fmt.Fprintf(c.out, "\n== %s ==\n", titleColor(title))
	for i, item := range items {
		fmt.Fprintf(c.out, "  %d) %s\n", i+1, item)
	}
	for {
		fmt.Fprint(c.out, "Choice: ")
		line, err := c.readLine(ctx)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > len(items) {
			fmt.Fprintln(c.out, "invalid selection")
			continue
		}
		return n - 1, nil
	}
}

func (c *Console) YesNo(ctx context.Context, prompt string) (bool, error) {
	for {
		fmt.Fprintf(c.out, "%s [y/n]: ", prompt)
		line, err := c.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(c.out, "please answer y or n")
	}
}

func (c *Console) Alert(_ context.Context, title string, lines []string) error {
	fmt.Fprintf(c.out, "\n-- %s --\n", alertColor(title))
	for _, line := range lines {
		fmt.Fprintln(c.out, line)
	}
	fmt.Fprintln(c.out, "(press Enter to continue)")
	_, _ = c.buf.ReadString('\n')
	return nil
}

func (c *Console) Notify(_ context.Context, msg string) error {
	fmt.Fprintln(c.out, msg)
	return nil
}

func (c *Console) ReadPasswordLine(_ context.Context, prompt string) ([]uint16, error) {
	fmt.Fprint(c.out, prompt)
	defer fmt.Fprintln(c.out)

	if !c.raw {
		line, err := c.buf.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, mokerr.Wrap(mokerr.Storage, "read password line", err)
		}
		return truncateUnits(toUTF16(strings.TrimRight(line, "\r\n"))), nil
	}

	raw, err := term.ReadPassword(c.fd)
	if err != nil {
		return nil, mokerr.Wrap(mokerr.Storage, "read password", err)
	}
	return truncateUnits(toUTF16(string(raw))), nil
}

func (c *Console) ReadChar(ctx context.Context, prompt string) (rune, error) {
	fmt.Fprint(c.out, prompt)
	defer fmt.Fprintln(c.out)

	if !c.raw {
		b, err := c.buf.ReadByte()
		if err != nil {
			return 0, mokerr.Wrap(mokerr.Storage, "read character", err)
		}
		return rune(b), nil
	}

	state, err := term.MakeRaw(c.fd)
	if err != nil {
		return 0, mokerr.Wrap(mokerr.Storage, "enter raw mode", err)
	}
	defer term.Restore(c.fd, state)

	b, err := c.buf.ReadByte()
	if err != nil {
		return 0, mokerr.Wrap(mokerr.Storage, "read character", err)
	}
	return rune(b), nil
}

func (c *Console) readLine(ctx context.Context) (string, error) {
	line, err := c.buf.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", mokerr.Wrap(mokerr.Storage, "read line", err)
	}
	return line, nil
}

// toUTF16 widens a UTF-8 string to UTF-16 code units, the unit the
// console.Port interface captures passwords in.
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

func truncateUnits(units []uint16) []uint16 {
	if len(units) > console.MaxPasswordLineUnits {
		return units[:console.MaxPasswordLineUnits]
	}
	return units
}
