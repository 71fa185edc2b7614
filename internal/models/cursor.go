package models

import (
	"encoding/base64"
	"errors"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

type Ordering string

const (
	OrderCreatedDesc Ordering = "created_desc"
	OrderCreatedAsc  Ordering = "created_asc"
)

var (
	ErrInvalidCursor  = errors.New("invalid cursor")
	ErrCursorOrdering = errors.New("cursor was issued under a different ordering")
)

func (o Ordering) Valid() bool {
	return o == OrderCreatedDesc || o == OrderCreatedAsc
}

// Cursor marks the last item returned by an ordered query. It is only valid
// for queries using the same Ordering.
type Cursor struct {
	Ordering  Ordering  `msgpack:"o"`
	CreatedAt time.Time `msgpack:"t"`
	ID        string    `msgpack:"i"`
}

func CursorAfter(ordering Ordering, item FeedItem) *Cursor {
	return &Cursor{Ordering: ordering, CreatedAt: item.CreatedAt, ID: item.ID}
}

func GroupCursor(ordering Ordering, g *Group) *Cursor {
	return &Cursor{Ordering: ordering, CreatedAt: g.CreatedAt, ID: g.ID}
}

// Check rejects cursors issued under another ordering.
func (c *Cursor) Check(ordering Ordering) error {
	if c == nil {
		return nil
	}
	if c.Ordering != ordering {
		return ErrCursorOrdering
	}
	return nil
}

// Encode returns the opaque wire form of the cursor.
func (c *Cursor) Encode() (string, error) {
	data, err := msgpack.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor parses an opaque cursor and verifies it belongs to ordering.
func DecodeCursor(s string, ordering Ordering) (*Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var c Cursor
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if !c.Ordering.Valid() || c.ID == "" {
		return nil, ErrInvalidCursor
	}
	if err := c.Check(ordering); err != nil {
		return nil, err
	}
	return &c, nil
}
