package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"mokctl/internal/efi"
	"mokctl/internal/varstore"
)

// fixtureEntry is one variable's JSON fixture shape: the same
// {attrs, data} pair internal/varstore.FileStore persists to its snapshot
// file, so a fixture authored by hand and a snapshot captured from a prior
// run are interchangeable.
type fixtureEntry struct {
	Attrs efi.Attributes `json:"attrs"`
	Data  []byte         `json:"data"`
}

// loadFixture seeds store with every variable named in the JSON file at
// path, used by the "run" command's fixture_path profile setting to stage
// the scenarios spec.md §8 describes (an enroll request, a delete request,
// a tampered MokList, ...) without a prior session having produced them.
func loadFixture(ctx context.Context, store varstore.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", path, err)
	}

	var entries map[string]fixtureEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse fixture %s: %w", path, err)
	}

	for name, entry := range entries {
		if err := store.Set(ctx, name, entry.Attrs, entry.Data); err != nil {
			return fmt.Errorf("seed fixture variable %s: %w", name, err)
		}
	}
	return nil
}
