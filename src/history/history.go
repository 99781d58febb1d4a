package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"colorsnap/src/messages"
)

// MaxEntries bounds the history. The 101st add evicts exactly the oldest entry.
const MaxEntries = 100

// ErrPersistenceWriteFailed wraps any failure to write the durable snapshot.
// The in-memory state is rolled back first, so memory and disk never diverge.
var ErrPersistenceWriteFailed = errors.New("history write failed")

// Store is a bounded, newest-first, persisted collection of picked colors.
// Mutations are serialized by a single mutex and every mutation writes a
// complete snapshot atomically (temp file + rename); a crash mid-write leaves
// either the old or the new document, never a torn one.
type Store struct {
	mu      sync.Mutex
	path    string
	entries []messages.ColorEntry
}

// Open loads the persisted history at path. A missing or empty file yields an
// empty store, never an error; a corrupt file is logged and treated as empty.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var entries []messages.ColorEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("history: discarding corrupt file %s: %v", path, err)
		return s, nil
	}
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	s.entries = entries
	return s, nil
}

// Path returns the durable document location.
func (s *Store) Path() string { return s.path }

// Entries returns a copy of the in-memory snapshot, newest first.
func (s *Store) Entries() []messages.ColorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]messages.ColorEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Add records a confirmed pick: assigns id and capture timestamp, prepends,
// truncates to MaxEntries and persists. On persistence failure the entry is
// not recorded and the error is returned to the caller.
func (s *Store) Add(c messages.ColorInfo) (messages.ColorEntry, error) {
	entry := messages.ColorEntry{
		ID:        uuid.NewString(),
		Hex:       c.Hex,
		RGB:       c.RGB,
		Timestamp: time.Now().UnixMilli(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]messages.ColorEntry, 0, len(s.entries)+1)
	next = append(next, entry)
	next = append(next, s.entries...)
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}

	if err := s.commit(next); err != nil {
		return messages.ColorEntry{}, err
	}
	return entry, nil
}

// Remove deletes the entry with the given id. Removing an unknown id is a
// no-op and does not error.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]messages.ColorEntry, 0, len(s.entries))
	found := false
	for _, e := range s.entries {
		if e.ID == id {
			found = true
			continue
		}
		next = append(next, e)
	}
	if !found {
		return nil
	}
	return s.commit(next)
}

// Relabel sets the user label on the entry with the given id. Ordering still
// reflects capture recency, not label edits.
func (s *Store) Relabel(id, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]messages.ColorEntry, len(s.entries))
	copy(next, s.entries)
	for i := range next {
		if next[i].ID == id {
			next[i].Label = label
			return s.commit(next)
		}
	}
	return fmt.Errorf("no history entry with id %q", id)
}

// Clear removes all entries.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit([]messages.ColorEntry{})
}

// Replace swaps in a complete new history document (whole-document replace
// semantics, used by the boundary's save-history command).
func (s *Store) Replace(entries []messages.ColorEntry) error {
	next := make([]messages.ColorEntry, len(entries))
	copy(next, entries)
	if len(next) > MaxEntries {
		next = next[:MaxEntries]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(next)
}

// commit persists next and, only on success, makes it the in-memory state.
// Callers hold s.mu.
func (s *Store) commit(next []messages.ColorEntry) error {
	if err := writeSnapshot(s.path, next); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceWriteFailed, err)
	}
	s.entries = next
	return nil
}

// writeSnapshot writes the full document to a temp file in the target
// directory and renames it into place.
func writeSnapshot(path string, entries []messages.ColorEntry) error {
	if entries == nil {
		entries = []messages.ColorEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".color_history-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
