package models

import (
	"time"
)

type Group struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)" json:"id" msgpack:"id"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`

	Name        string `gorm:"size:100;not null" json:"name" msgpack:"name"`
	Description string `gorm:"size:255" json:"description" msgpack:"description"`
	OwnerID     string `gorm:"type:varchar(64);not null;index" json:"owner_id" msgpack:"owner_id"`

	// Capacity of 0 means unlimited.
	Capacity int `gorm:"not null;default:0" json:"capacity" msgpack:"capacity"`

	Members []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members" msgpack:"members"`
}

// GroupMember is one entry of a group's member set. The composite primary
// key keeps a user from appearing twice.
type GroupMember struct {
	GroupID  string    `gorm:"primaryKey;type:varchar(26)" json:"group_id" msgpack:"group_id"`
	UserID   string    `gorm:"primaryKey;type:varchar(64)" json:"user_id" msgpack:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at" msgpack:"joined_at"`
}

func (g *Group) MemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

func (g *Group) IsMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (g *Group) MemberCount() int {
	return len(g.Members)
}

// IsFull reports whether another member would exceed the capacity.
func (g *Group) IsFull() bool {
	return g.Capacity > 0 && len(g.Members) >= g.Capacity
}

func (g *Group) IsOwner(userID string) bool {
	return userID != "" && g.OwnerID == userID
}

// CanPost reports whether the user may write posts and comments in the group.
func (g *Group) CanPost(userID string) bool {
	return g.IsOwner(userID) || g.IsMember(userID)
}

// Clone returns a deep copy so callers can mutate the member set freely.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	c := *g
	c.Members = append([]GroupMember(nil), g.Members...)
	return &c
}

type GroupResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	Capacity    int       `json:"capacity"`
	MemberIDs   []string  `json:"member_ids"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (g *Group) ToResponse() GroupResponse {
	return GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		OwnerID:     g.OwnerID,
		Capacity:    g.Capacity,
		MemberIDs:   g.MemberIDs(),
		MemberCount: g.MemberCount(),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// GroupPage is one page of a group listing, newest first.
type GroupPage struct {
	Items   []GroupResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}
