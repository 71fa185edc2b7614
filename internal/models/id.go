package models

import (
	"github.com/oklog/ulid/v2"
)

// NewID returns a ULID string. IDs generated by one process sort in creation
// order, which the feed queries use to break created_at ties.
func NewID() string {
	return ulid.Make().String()
}
