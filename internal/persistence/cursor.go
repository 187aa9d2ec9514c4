// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"example.com/urgency/internal/domain"
)

type cursorToken struct {
	Date time.Time `json:"d"`
	ID   string    `json:"id"`
}

// EncodeCursor serialises a pagination cursor into an opaque token. A nil
// cursor encodes to the empty string.
func EncodeCursor(c *domain.Cursor) string {
	if c == nil {
		return ""
	}
	raw, err := json.Marshal(cursorToken{Date: c.Date.UTC(), ID: c.ID})
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by EncodeCursor. The empty string
// decodes to a nil cursor, meaning "first page".
func DecodeCursor(token string) (*domain.Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	var parsed cursorToken
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	return &domain.Cursor{Date: parsed.Date, ID: parsed.ID}, nil
}
