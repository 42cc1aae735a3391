package game

import (
	"encoding/base64"
	"encoding/json"

	"backend/internal/apperr"
)

// Cursor marks the last entry of a leaderboard page for forward-only
// continuation. The owner breaks ties between entries that share an ordering
// key (same score in the same millisecond).
type Cursor struct {
	Key   int64  `json:"k"`
	Owner string `json:"o"`
}

// Encode serializes the cursor into an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a token produced by Encode. Malformed tokens are an
// InvalidArgument; clients must treat cursors as opaque.
func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "malformed cursor")
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, apperr.New(apperr.InvalidArgument, "malformed cursor")
	}
	if c.Key <= 0 || c.Owner == "" {
		return nil, apperr.New(apperr.InvalidArgument, "malformed cursor")
	}
	return &c, nil
}
