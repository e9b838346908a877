package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"civitai/harvester/internal/domain"

	log "github.com/sirupsen/logrus"
)

// StartCursorName names the page fetched without a cursor.
const StartCursorName = "start"

var unsafeCursorChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// PageStore persists raw catalog responses and loads them back.
type PageStore interface {
	SavePage(cursor string, body []byte) (string, error)
	LoadPage(path string) (*domain.CatalogPage, error)
	LoadItems(path string) ([]domain.Item, error)
}

type filePageStore struct {
	dir  string
	glob string
}

// NewFilePageStore stores pages as civitai_datas_<cursor>.json under dir.
// glob selects the page files when a directory is loaded.
func NewFilePageStore(dir, glob string) PageStore {
	return &filePageStore{
		dir:  dir,
		glob: glob,
	}
}

// PageFileName returns the file name used for the page fetched with cursor.
func PageFileName(cursor string) string {
	if cursor == "" {
		cursor = StartCursorName
	}
	return fmt.Sprintf("civitai_datas_%s.json", unsafeCursorChars.ReplaceAllString(cursor, "_"))
}

func (s *filePageStore) SavePage(cursor string, body []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir %s: %w", s.dir, err)
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, body, "", "    "); err != nil {
		return "", fmt.Errorf("%w: page body: %v", domain.ErrMalformedDocument, err)
	}
	indented.WriteByte('\n')

	path := filepath.Join(s.dir, PageFileName(cursor))
	if err := os.WriteFile(path, indented.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write page %s: %w", path, err)
	}

	return path, nil
}

func (s *filePageStore) LoadPage(path string) (*domain.CatalogPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var page domain.CatalogPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedDocument, path, err)
	}
	if page.Skipped > 0 {
		log.Warnf("⚠️ Skipped %d malformed items in %s", page.Skipped, path)
	}

	return &page, nil
}

// LoadItems loads the items of a single JSON document, or of every page file
// in a directory in lexical order.
func (s *filePageStore) LoadItems(path string) ([]domain.Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !info.IsDir() {
		page, err := s.LoadPage(path)
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	}

	files, err := filepath.Glob(filepath.Join(path, s.glob))
	if err != nil {
		return nil, fmt.Errorf("invalid page glob %q: %w", s.glob, err)
	}
	sort.Strings(files)

	items := make([]domain.Item, 0)
	for _, file := range files {
		page, err := s.LoadPage(file)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}

	log.Debugf("Loaded %d items from %d page files in %s", len(items), len(files), strings.TrimSuffix(path, "/"))
	return items, nil
}
