package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

func TestAppendAndLoad(t *testing.T) {
	j := OpenAt(filepath.Join(t.TempDir(), "journal.mp"))

	entries, err := j.Load()
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty journal, got %d entries", len(entries))
	}

	first := Entry{File: "a.rs", Line: 3, Col: 5, NewName: "my_name", Category: "non_snake_case", AppliedAt: time.Now()}
	if err := j.Append(first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Append(Entry{File: "b.rs", Line: 1, Col: 1, NewName: "other", Category: "non_upper_case_globals"}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	entries, err = j.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].File != "a.rs" || entries[0].NewName != "my_name" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].File != "b.rs" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
}

func TestSchemaMismatchReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.mp")

	stale := payload{Schema: journalSchemaVersion + 1, Entries: []Entry{{File: "old.rs"}}}
	raw, err := msgpack.Marshal(&stale)
	if err != nil {
		t.Fatalf("marshal stale payload: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write stale journal: %v", err)
	}

	j := OpenAt(path)
	entries, err := j.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected stale journal to read as empty, got %d entries", len(entries))
	}

	// Appending resets the file to the current schema.
	if err := j.Append(Entry{File: "new.rs", NewName: "x"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	entries, err = j.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(entries) != 1 || entries[0].File != "new.rs" {
		t.Fatalf("unexpected entries after reset: %+v", entries)
	}
}
