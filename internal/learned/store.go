// Package learned persists field-signature to field-type mappings
// produced by the expensive classifiers, so the same kind of field is never
// paid for twice.
//
// The store holds only structural metadata. It never records a user's
// answer or any profile value.
package learned

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/straja-ai/fieldsense/internal/field"
	"github.com/straja-ai/fieldsense/internal/fieldtype"
)

const (
	// ExactConfidence is asserted for a hit on the full field signature.
	ExactConfidence = 0.90
	// LooseConfidence is asserted for a hit on the label-only signature.
	LooseConfidence = 0.80
)

// ErrCorrupt is returned by Open when the store file cannot be decoded.
var ErrCorrupt = errors.New("learned pattern store is corrupt")

// Entry is one persisted mapping.
type Entry struct {
	Type          fieldtype.Type `json:"type"`
	LearnedFrom   string         `json:"learnedFrom"`
	LearnedAt     time.Time      `json:"learnedAt"`
	Platform      field.Platform `json:"platform"`
	OriginalLabel string         `json:"originalLabel"`
	OriginalID    string         `json:"originalId"`
}

// KeyedEntry pairs an entry with its signature.
type KeyedEntry struct {
	Key string `json:"key"`
	Entry
}

// Hit is a successful lookup.
type Hit struct {
	Key        string
	Entry      Entry
	Loose      bool
	Confidence float64
}

// Store is a file-backed map held fully in memory. Writes are flushed
// immediately; the first writer for a key wins.
type Store struct {
	path string

	mu      sync.RWMutex
	entries map[string]Entry

	now func() time.Time
}

// Open loads the store at path. A missing file is an empty store. An
// empty path yields a store that is never persisted.
func Open(path string) (*Store, error) {
	s := &Store{
		path:    strings.TrimSpace(path),
		entries: map[string]Entry{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	if s.path == "" {
		return s, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read learned patterns: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if s.entries == nil {
		s.entries = map[string]Entry{}
	}
	return s, nil
}

// Path returns the backing file, empty for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Lookup checks the exact signature first and then the label-only one.
// Entries whose type no longer parses are skipped.
func (s *Store) Lookup(p field.Platform, f field.Field) (Hit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := field.Key(p, f)
	if e, ok := s.entries[key]; ok && e.Type != fieldtype.Unknown {
		return Hit{Key: key, Entry: e, Confidence: ExactConfidence}, true
	}
	if loose := field.LooseKey(f); loose != "" {
		if e, ok := s.entries[loose]; ok && e.Type != fieldtype.Unknown {
			return Hit{Key: loose, Entry: e, Loose: true, Confidence: LooseConfidence}, true
		}
	}
	return Hit{}, false
}

// Learn records typ for the field under both its exact and its loose
// signature, skipping any signature that already has an entry. It reports
// whether anything was added. When the flush fails the entry stays in
// memory for this process and the error is returned.
func (s *Store) Learn(p field.Platform, f field.Field, typ fieldtype.Type, source string) (bool, error) {
	if typ == fieldtype.Unknown || !typ.Valid() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		Type:          typ,
		LearnedFrom:   source,
		LearnedAt:     s.now(),
		Platform:      p,
		OriginalLabel: field.SanitizeText(f.Label),
		OriginalID:    f.Identifier(),
	}
	if entry.Platform == "" {
		entry.Platform = field.PlatformUnknown
	}

	added := false
	for _, key := range []string{field.Key(p, f), field.LooseKey(f)} {
		if key == "" {
			continue
		}
		if _, exists := s.entries[key]; exists {
			continue
		}
		s.entries[key] = entry
		added = true
	}
	if !added {
		return false, nil
	}
	if err := s.flushLocked(); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a snapshot sorted by key.
func (s *Store) Entries() []KeyedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]KeyedEntry, 0, len(s.entries))
	for k, e := range s.entries {
		out = append(out, KeyedEntry{Key: k, Entry: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Clear forgets every entry and removes the backing file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = map[string]Entry{}
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove learned patterns: %w", err)
	}
	return nil
}

// flushLocked writes the whole map atomically: temp file in the same
// directory, then rename over the target.
func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create learned patterns dir: %w", err)
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode learned patterns: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp learned patterns file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp learned patterns file: %w", err)
	}
	if err := tmpFile.Chmod(0o644); err != nil {
		tmpFile.Close()
		return fmt.Errorf("chmod temp learned patterns file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("sync temp learned patterns file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp learned patterns file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), s.path); err != nil {
		return fmt.Errorf("replace learned patterns file: %w", err)
	}
	return nil
}
