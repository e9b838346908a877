package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"civitai/harvester/internal/domain"

	log "github.com/sirupsen/logrus"
)

// SelectionStore is the append-only store of curated items.
type SelectionStore interface {
	Load() (*domain.SelectionSet, error)
	Append(item domain.Item) (int, error)
	Path() string
}

type fileSelectionStore struct {
	path string
}

func NewFileSelectionStore(path string) SelectionStore {
	return &fileSelectionStore{path: path}
}

func (s *fileSelectionStore) Path() string {
	return s.path
}

// Load reads the selection file. A missing or malformed file, or one whose
// items entry is absent or not a list, yields an empty set. Entries that are
// not items are left out of the set but stay in the file.
func (s *fileSelectionStore) Load() (*domain.SelectionSet, error) {
	_, entries, err := s.read()
	if err != nil {
		return nil, err
	}

	set := &domain.SelectionSet{Items: make([]domain.Item, 0, len(entries))}
	skipped := 0
	for _, entry := range entries {
		var item domain.Item
		if err := json.Unmarshal(entry, &item); err != nil {
			skipped++
			continue
		}
		set.Append(item)
	}
	if skipped > 0 {
		log.Warnf("⚠️ Skipped %d malformed entries in %s", skipped, s.path)
	}
	return set, nil
}

// read returns the top-level document and its raw items. Entries are kept
// as written so an append never rewrites what it cannot decode.
func (s *fileSelectionStore) read() (map[string]json.RawMessage, []json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]json.RawMessage{}, []json.RawMessage{}, nil
		}
		return nil, nil, fmt.Errorf("failed to read selection file %s: %w", s.path, err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		log.Warnf("⚠️ Selection file %s is not a JSON object, starting a new one", s.path)
		return map[string]json.RawMessage{}, []json.RawMessage{}, nil
	}

	var entries []json.RawMessage
	rawItems := bytes.TrimSpace(doc["items"])
	if len(rawItems) == 0 || rawItems[0] != '[' || json.Unmarshal(rawItems, &entries) != nil {
		log.Warnf("⚠️ Selection file %s has no items list, repairing", s.path)
		return doc, []json.RawMessage{}, nil
	}
	return doc, entries, nil
}

// Append adds item to the selection file with a full read-modify-write and
// returns the new number of selected items. Existing entries are carried
// over byte for byte, whether or not they decode as items.
func (s *fileSelectionStore) Append(item domain.Item) (int, error) {
	doc, entries, err := s.read()
	if err != nil {
		return 0, err
	}

	encoded, err := encode(item)
	if err != nil {
		return 0, fmt.Errorf("failed to encode item %d: %w", item.ID, err)
	}
	entries = append(entries, encoded)

	if doc["items"], err = encode(entries); err != nil {
		return 0, fmt.Errorf("failed to encode selection: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create selection dir: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("failed to encode selection: %w", err)
	}

	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("failed to write selection file %s: %w", s.path, err)
	}

	log.Infof("💾 Saved item %d to %s (%d selected)", item.ID, s.path, len(entries))
	return len(entries), nil
}

// encode marshals v without escaping HTML characters.
func encode(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
