package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CursorSeparator joins the components of a composite cursor. Only the
// first component is accepted back by the API.
const CursorSeparator = "|"

// PageMetadata is the pagination block of a catalog response.
type PageMetadata struct {
	NextCursor Field `json:"nextCursor"`
	NextPage   Field `json:"nextPage"`
}

// CatalogPage is one fetched API response.
type CatalogPage struct {
	Items    []Item       `json:"items"`
	Metadata PageMetadata `json:"metadata"`

	// Skipped counts entries of items that are not item objects.
	Skipped int `json:"-"`
}

// UnmarshalJSON decodes the items one by one so a single broken entry does
// not cost the rest of the page.
func (p *CatalogPage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Items    json.RawMessage `json:"items"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	page := CatalogPage{Items: []Item{}}
	if items := bytes.TrimSpace(raw.Items); len(items) > 0 && !bytes.Equal(items, []byte("null")) {
		var entries []json.RawMessage
		if err := json.Unmarshal(items, &entries); err != nil {
			return fmt.Errorf("items: %w", err)
		}
		for _, entry := range entries {
			var item Item
			if err := json.Unmarshal(entry, &item); err != nil {
				page.Skipped++
				continue
			}
			page.Items = append(page.Items, item)
		}
	}
	_ = json.Unmarshal(raw.Metadata, &page.Metadata)

	*p = page
	return nil
}

// NextCursor returns the cursor for the following request, or "" when the
// response carried none.
func (p *CatalogPage) NextCursor() string {
	return ContinuationCursor(p.Metadata.NextCursor.OrDefault(""))
}

// ContinuationCursor strips the trailing components of a composite cursor.
func ContinuationCursor(cursor string) string {
	first, _, _ := strings.Cut(cursor, CursorSeparator)
	return first
}

// PageParams are the query parameters shared by every request of a walk.
type PageParams struct {
	Limit int
	NSFW  bool
}

// Key identifies a walk for resumable state.
func (p PageParams) Key() string {
	return strings.Join([]string{"limit", strconv.Itoa(p.Limit), "nsfw", boolString(p.NSFW)}, ":")
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
