package varstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mokctl/internal/efi"
	"mokctl/internal/mokerr"
)

// FileStore is a JSON-snapshot-backed Store used by the simulator binary
// to persist a session's variable state across runs on a workstation
// (there is no real firmware NVRAM to write to outside production
// firmware). It wraps an in-memory MemStore and flushes the full snapshot
// to disk on every mutating call, grounded on internal/storage's
// atomic_save.go pattern: write to a uniquely-named temp file in the same
// directory, fsync, then rename over the target so a crash mid-write never
// leaves a half-written snapshot.
type FileStore struct {
	mu   sync.Mutex
	mem  *MemStore
	path string
}

// snapshotEntry is one variable's on-disk representation.
type snapshotEntry struct {
	Attrs efi.Attributes `json:"attrs"`
	Data  []byte         `json:"data"`
}

// snapshot is the full on-disk form: a flat map keyed by variable name.
type snapshot map[string]snapshotEntry

// OpenFileStore loads path if it exists (an empty/absent file starts with
// no variables) and returns a Store that persists every mutation back to
// it.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{mem: NewMemStore(), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, mokerr.Wrap(mokerr.Storage, "read variable snapshot "+path, err)
	}
	if len(data) == 0 {
		return fs, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, mokerr.Wrap(mokerr.Parse, "parse variable snapshot "+path, err)
	}
	for name, entry := range snap {
		fs.mem.Seed(name, entry.Attrs, entry.Data)
	}
	return fs, nil
}

func (f *FileStore) Get(ctx context.Context, name string) (Variable, error) {
	return f.mem.Get(ctx, name)
}

func (f *FileStore) Set(ctx context.Context, name string, attrs efi.Attributes, data []byte) error {
	if err := f.mem.Set(ctx, name, attrs, data); err != nil {
		return err
	}
	return f.flush()
}

func (f *FileStore) Append(ctx context.Context, name string, attrs efi.Attributes, data []byte) error {
	if err := f.mem.Append(ctx, name, attrs, data); err != nil {
		return err
	}
	return f.flush()
}

func (f *FileStore) Delete(ctx context.Context, name string) error {
	if err := f.mem.Delete(ctx, name); err != nil {
		return err
	}
	return f.flush()
}

// flush serializes the current variable set and writes it atomically:
// temp file in the same directory, fsync, rename over the target. Mirrors
// storage.StorageService's writeToTempFile/atomicRename pair so a crash
// mid-write can never corrupt the last-good snapshot.
func (f *FileStore) flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mem.mu.Lock()
	snap := make(snapshot, len(f.mem.vars))
	for name, v := range f.mem.vars {
		snap[name] = snapshotEntry{Attrs: v.Attrs, Data: append([]byte(nil), v.Data...)}
	}
	f.mem.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return mokerr.Wrap(mokerr.OutOfResources, "marshal variable snapshot", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mokerr.Wrap(mokerr.Storage, "create snapshot directory", err)
	}

	tmp := fmt.Sprintf("%s.tmp.%s.%s", f.path, time.Now().Format("20060102-150405"), randomHexSuffix(6))
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return mokerr.Wrap(mokerr.Storage, "open temp snapshot", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return mokerr.Wrap(mokerr.Storage, "write temp snapshot", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return mokerr.Wrap(mokerr.Storage, "sync temp snapshot", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return mokerr.Wrap(mokerr.Storage, "close temp snapshot", err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return mokerr.Wrap(mokerr.Storage, "commit variable snapshot", err)
	}
	return nil
}

func randomHexSuffix(length int) string {
	buf := make([]byte, length/2)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano()%1000000)
	}
	return fmt.Sprintf("%x", buf)
}
