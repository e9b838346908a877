package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// NoneLabel is how an absent or null Field is displayed and bucketed.
const NoneLabel = "null"

// Field is a scalar from the catalog that may be missing, null, or typed
// inconsistently across API versions (numbers vs strings).
type Field struct {
	Value string
	Valid bool
}

// Some returns a valid Field holding v.
func Some(v string) Field {
	return Field{Value: v, Valid: true}
}

// Present reports whether the field holds a non-empty value.
func (f Field) Present() bool {
	return f.Valid && f.Value != ""
}

func (f Field) String() string {
	if !f.Valid {
		return NoneLabel
	}
	return f.Value
}

// OrDefault returns the value or def when the field is null.
func (f Field) OrDefault(def string) string {
	if !f.Valid {
		return def
	}
	return f.Value
}

func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = Field{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Some(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = Some(strconv.FormatBool(b))
	case '{', '[':
		// Structured values are not scalars; keep them as their compact text.
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*f = Some(buf.String())
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = Some(n.String())
	}
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
