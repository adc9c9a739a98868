// Package journal persists a record of applied renames so a batch's
// outcome survives the process, using the same schema-versioned msgpack
// layout as the rest of our on-disk artifacts.
package journal

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the payload format changes.
const journalSchemaVersion uint16 = 1

// Entry records one successfully applied rename.
type Entry struct {
	File      string
	Line      uint32
	Col       uint32
	NewName   string
	Category  string
	AppliedAt time.Time
}

type payload struct {
	Schema  uint16
	Entries []Entry
}

// Journal is an append-only msgpack file in the user cache directory.
// Thread-safe for concurrent access.
type Journal struct {
	mu   sync.Mutex
	path string
}

// Open initializes the journal under the standard cache location.
func Open(app string) (*Journal, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Journal{path: filepath.Join(dir, "journal.mp")}, nil
}

// OpenAt uses an explicit file path instead of the cache directory.
func OpenAt(path string) *Journal {
	return &Journal{path: path}
}

// Append adds entries and rewrites the file atomically.
func (j *Journal) Append(entries ...Entry) error {
	if j == nil || len(entries) == 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	existing, err := j.load()
	if err != nil {
		return err
	}
	p := payload{
		Schema:  journalSchemaVersion,
		Entries: append(existing, entries...),
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if err := msgpack.NewEncoder(f).Encode(&p); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), j.path)
}

// Load returns all recorded entries. A missing file or a schema
// mismatch yields an empty journal, not an error.
func (j *Journal) Load() ([]Entry, error) {
	if j == nil {
		return nil, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.load()
}

func (j *Journal) load() ([]Entry, error) {
	f, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var p payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		return nil, err
	}
	if p.Schema != journalSchemaVersion {
		// Stale format: treat as empty so the next Append resets it.
		return nil, nil
	}
	return p.Entries, nil
}
