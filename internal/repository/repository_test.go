package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"civitai/harvester/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeItem(t *testing.T, doc string) domain.Item {
	t.Helper()
	var item domain.Item
	require.NoError(t, json.Unmarshal([]byte(doc), &item))
	return item
}

func TestPageFileName(t *testing.T) {
	assert.Equal(t, "civitai_datas_start.json", PageFileName(""))
	assert.Equal(t, "civitai_datas_12345.json", PageFileName("12345"))
	assert.Equal(t, "civitai_datas_a_b_c.json", PageFileName("a/b|c"))
}

func TestSaveAndLoadPage(t *testing.T) {
	dir := t.TempDir()
	store := NewFilePageStore(dir, "civitai_datas_*.json")

	body := []byte(`{"items":[{"id":1,"baseModel":"SD1.5"},{"id":2}],"metadata":{"nextCursor":"99|x"}}`)
	path, err := store.SavePage("", body)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "civitai_datas_start.json"), path)

	page, err := store.LoadPage(path)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "99", page.NextCursor())

	again, err := store.LoadPage(path)
	require.NoError(t, err)
	assert.Equal(t, page, again)
}

func TestSavePageRejectsNonJSON(t *testing.T) {
	store := NewFilePageStore(t.TempDir(), "*.json")

	_, err := store.SavePage("1", []byte("<html>"))
	assert.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestLoadItemsFromDirectory(t *testing.T) {
	dir := t.TempDir()
	store := NewFilePageStore(dir, "civitai_datas_*.json")

	_, err := store.SavePage("", []byte(`{"items":[{"id":1}]}`))
	require.NoError(t, err)
	_, err = store.SavePage("2", []byte(`{"items":[{"id":2},{"id":3}]}`))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte(`{"items":[{"id":100}]}`), 0o644))

	items, err := store.LoadItems(dir)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	single, err := store.LoadItems(filepath.Join(dir, "notes.json"))
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, int64(100), single[0].ID)
}

func TestLoadItemsMissingPath(t *testing.T) {
	store := NewFilePageStore(t.TempDir(), "*.json")

	_, err := store.LoadItems(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestSelectionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selected", "selected_datas.json")
	store := NewFileSelectionStore(path)

	first := decodeItem(t, `{"id":1,"url":"https://img/1.jpeg"}`)
	saved := decodeItem(t, `{"id":2,"url":"https://img/2.jpeg","meta":{"prompt":"<lora:detail:0.8> & more","resources":[{"name":"detail"}]},"extra":{"a":[1,2]}}`)

	n, err := store.Append(first)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.Append(saved)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	set, err := store.Load()
	require.NoError(t, err)
	require.Len(t, set.Items, 2)
	assert.Equal(t, saved, set.Items[len(set.Items)-1])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<lora:detail:0.8> & more")
}

func TestSelectionRepairsMalformedFile(t *testing.T) {
	for name, content := range map[string]string{
		"not json":       "{{{",
		"no items":       `{"other": 1}`,
		"items not list": `{"items": {"id": 1}}`,
		"top level list": `[1, 2]`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "selected.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			store := NewFileSelectionStore(path)

			set, err := store.Load()
			require.NoError(t, err)
			assert.NotNil(t, set.Items)
			assert.Empty(t, set.Items)

			n, err := store.Append(decodeItem(t, `{"id":5}`))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			assert.Len(t, readEntries(t, path), 1)
		})
	}
}

func readEntries(t *testing.T, path string) []json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	var entries []json.RawMessage
	require.NoError(t, json.Unmarshal(doc["items"], &entries))
	return entries
}

func TestSelectionAppendKeepsUndecodableEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selected.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items": ["not an item", {"id": "abc"}], "note": "kept"}`), 0o644))
	store := NewFileSelectionStore(path)

	n, err := store.Append(decodeItem(t, `{"id":5}`))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = store.Append(decodeItem(t, `{"id":6}`))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	entries := readEntries(t, path)
	require.Len(t, entries, 4)
	assert.JSONEq(t, `"not an item"`, string(entries[0]))
	assert.JSONEq(t, `{"id": "abc"}`, string(entries[1]))
	assert.JSONEq(t, `{"id": 6}`, string(entries[3]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"note": "kept"`)

	set, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())
	assert.Equal(t, []int64{0, 5, 6}, []int64{set.Items[0].ID, set.Items[1].ID, set.Items[2].ID})
}

func TestLoadItemsSkipsBrokenItems(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "civitai_datas_start.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"items":[{"id":1,"width":"512"},"oops",{"id":2,"baseModel":"SDXL"}]}`), 0o644))

	items, err := NewFilePageStore(dir, "civitai_datas_*.json").LoadItems(path)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 512, items[0].Width)
	assert.Equal(t, int64(2), items[1].ID)
}

func TestSelectionMissingFileIsEmpty(t *testing.T) {
	store := NewFileSelectionStore(filepath.Join(t.TempDir(), "none.json"))

	set, err := store.Load()
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestItemRow(t *testing.T) {
	item := decodeItem(t, `{"id":7,"baseModel":"SDXL","createdAt":"2024-01-01T00:00:00Z","stats":{"likeCount":4,"dislikeCount":1}}`)

	row, err := itemRow(item)
	require.NoError(t, err)
	require.Len(t, row, 6)

	assert.Equal(t, int64(7), row[0])
	require.NotNil(t, row[1])
	assert.Equal(t, "SDXL", *row[1].(*string))
	assert.Nil(t, row[2].(*string))
	assert.Equal(t, int64(3), row[3])
	assert.Equal(t, "2024-01-01T00:00:00Z", *row[4].(*string))
	assert.JSONEq(t, `{"id":7,"baseModel":"SDXL","createdAt":"2024-01-01T00:00:00Z","stats":{"likeCount":4,"dislikeCount":1}}`, string(row[5].([]byte)))
}
