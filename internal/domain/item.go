package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Stats holds the reaction counters of an image.
type Stats struct {
	LikeCount    int64 `json:"likeCount"`
	CryCount     int64 `json:"cryCount"`
	LaughCount   int64 `json:"laughCount"`
	HeartCount   int64 `json:"heartCount"`
	DislikeCount int64 `json:"dislikeCount"`
	CommentCount int64 `json:"commentCount"`
}

// ResourceRef is an entry of one of the meta resource lists.
type ResourceRef struct {
	Name           Field `json:"name"`
	Type           Field `json:"type"`
	ModelVersionID Field `json:"modelVersionId"`
}

// Meta is the generation metadata attached to an image.
type Meta struct {
	Prompt              string        `json:"prompt"`
	NegativePrompt      string        `json:"negativePrompt"`
	Resources           []ResourceRef `json:"resources"`
	CivitaiResources    []ResourceRef `json:"civitaiResources"`
	AdditionalResources []ResourceRef `json:"additionalResources"`
}

// Item is one entry of the image catalog.
type Item struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	NSFW      bool   `json:"nsfw"`
	NSFWLevel Field  `json:"nsfwLevel"`
	BaseModel Field  `json:"baseModel"`
	CreatedAt string `json:"createdAt"`
	PostID    Field  `json:"postId"`
	Username  Field  `json:"username"`
	Stats     *Stats `json:"stats"`
	Meta      *Meta  `json:"meta"`

	// raw is the compacted source document, re-emitted on marshal so fields
	// this type does not model survive a save.
	raw json.RawMessage
}

// LikeScore sums the positive reactions minus dislikes. Items without
// usable stats score 0.
func (i Item) LikeScore() int64 {
	if i.Stats == nil {
		return 0
	}
	s := i.Stats
	return s.LikeCount + s.CryCount + s.LaughCount + s.HeartCount - s.DislikeCount
}

// Created parses CreatedAt; the zero time is returned when it is missing or
// not RFC 3339.
func (i Item) Created() time.Time {
	t, err := time.Parse(time.RFC3339Nano, i.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (i *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        Field           `json:"id"`
		URL       json.RawMessage `json:"url"`
		Width     Field           `json:"width"`
		Height    Field           `json:"height"`
		NSFW      json.RawMessage `json:"nsfw"`
		NSFWLevel Field           `json:"nsfwLevel"`
		BaseModel Field           `json:"baseModel"`
		CreatedAt Field           `json:"createdAt"`
		PostID    Field           `json:"postId"`
		Username  Field           `json:"username"`
		Stats     json.RawMessage `json:"stats"`
		Meta      json.RawMessage `json:"meta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: item: %v", ErrMalformedDocument, err)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return fmt.Errorf("%w: item: %v", ErrMalformedDocument, err)
	}

	item := Item{
		ID:        intOf(raw.ID),
		Width:     int(intOf(raw.Width)),
		Height:    int(intOf(raw.Height)),
		NSFWLevel: raw.NSFWLevel,
		BaseModel: raw.BaseModel,
		CreatedAt: raw.CreatedAt.OrDefault(""),
		PostID:    raw.PostID,
		Username:  raw.Username,
		raw:       compact.Bytes(),
	}
	_ = json.Unmarshal(raw.URL, &item.URL)
	_ = json.Unmarshal(raw.NSFW, &item.NSFW)
	item.Stats = decodeOptional[Stats](raw.Stats)
	item.Meta = decodeOptional[Meta](raw.Meta)

	*i = item
	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	if len(i.raw) > 0 {
		return i.raw, nil
	}
	type plain Item
	return json.Marshal(plain(i))
}

// intOf reads a loosely typed integer: 512, 512.0 and "512" all give 512.
// Anything else is 0.
func intOf(f Field) int64 {
	if !f.Valid {
		return 0
	}
	if n, err := strconv.ParseInt(f.Value, 10, 64); err == nil {
		return n
	}
	if x, err := strconv.ParseFloat(f.Value, 64); err == nil && !math.IsNaN(x) && !math.IsInf(x, 0) {
		return int64(x)
	}
	return 0
}

// decodeOptional decodes an object-valued field, returning nil when it is
// absent, null or not shaped as T.
func decodeOptional[T any](data json.RawMessage) *T {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return &v
}
