// Package fileenroll implements spec.md §4.7's FileEnroll: a directory
// browser rooted at the ESP that lets the operator navigate into
// subdirectories, pick a file, and have its contents handed to
// actions.Engine.EnrollFile. Grounded on the directory-walk shape of
// internal/storage's os.ReadDir use in the teacher repo, generalized from
// a flat backup-file scan to an interactive multi-level browser.
package fileenroll

import (
	"context"
	"io/fs"
	"path"
	"sort"

	"mokctl/internal/actions"
	"mokctl/internal/console"
	"mokctl/internal/mokerr"
)

const parentLabel = ".. (up one level)"

// Browser presents an fs.FS rooted at the ESP through the console's
// selection menu, recursing into chosen directories until the operator
// picks a file or cancels back out past the root.
type Browser struct {
	fsys    fs.FS
	console console.Port
	actions *actions.Engine
}

// New builds a Browser over root (the ESP filesystem) and the given
// collaborators.
func New(root fs.FS, c console.Port, a *actions.Engine) *Browser {
	return &Browser{fsys: root, console: c, actions: a}
}

// Enroll drives the browse-then-read-then-dispatch flow spec.md §4.7
// describes: navigate from "." until a file is chosen, read its entire
// contents, and delegate to actions.Engine.EnrollFile. asHash selects
// whether the chosen file is hashed as a PE image or parsed as an X.509
// certificate.
func (b *Browser) Enroll(ctx context.Context, asHash bool) error {
	dir := "."
	for {
		entries, err := fs.ReadDir(b.fsys, dir)
		if err != nil {
			return mokerr.Wrap(mokerr.Storage, "read directory "+dir, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		labels := make([]string, 0, len(entries)+1)
		if dir != "." {
			labels = append(labels, parentLabel)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			labels = append(labels, name)
		}

		choice, err := b.console.SelectionMenu(ctx, "Select a file: "+dir, labels)
		if err != nil {
			return mokerr.Wrap(mokerr.Storage, "read file selection", err)
		}
		if choice < 0 || choice >= len(labels) {
			return mokerr.New(mokerr.Parse, "file selection out of range")
		}

		if dir != "." && choice == 0 {
			dir = path.Dir(dir)
			continue
		}

		idx := choice
		if dir != "." {
			idx--
		}
		chosen := entries[idx]

		childPath := chosen.Name()
		if dir != "." {
			childPath = path.Join(dir, chosen.Name())
		}

		if chosen.IsDir() {
			dir = childPath
			continue
		}

		blob, err := fs.ReadFile(b.fsys, childPath)
		if err != nil {
			return mokerr.Wrap(mokerr.Storage, "read file "+childPath, err)
		}

		return b.actions.EnrollFile(ctx, blob, asHash)
	}
}
