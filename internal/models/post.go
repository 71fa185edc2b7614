package models

import (
	"strings"
	"time"
)

// AnonymousName is shown for authors without a display name.
const AnonymousName = "Anonymous"

type Post struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	CreatedAt time.Time `gorm:"not null;index:idx_posts_group_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	GroupID    string `gorm:"type:varchar(26);not null;index:idx_posts_group_created,priority:1" json:"group_id"`
	AuthorID   string `gorm:"type:varchar(64);not null" json:"author_id"`
	AuthorName string `gorm:"size:100" json:"author_name"`

	Title string `gorm:"size:200;not null" json:"title"`
	Body  string `gorm:"type:text;not null" json:"body"`
}

type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	CreatedAt time.Time `gorm:"not null;index:idx_comments_post_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	GroupID    string `gorm:"type:varchar(26);not null" json:"group_id"`
	PostID     string `gorm:"type:varchar(26);not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	AuthorID   string `gorm:"type:varchar(64);not null" json:"author_id"`
	AuthorName string `gorm:"size:100" json:"author_name"`

	Body string `gorm:"type:text;not null" json:"body"`
}

// CanModify reports whether the user may edit or delete the post, given the
// owner of the group it belongs to.
func (p *Post) CanModify(userID, groupOwnerID string) bool {
	return userID != "" && (p.AuthorID == userID || groupOwnerID == userID)
}

func (c *Comment) CanModify(userID, groupOwnerID string) bool {
	return userID != "" && (c.AuthorID == userID || groupOwnerID == userID)
}

func (p *Post) ToFeedItem() FeedItem {
	return FeedItem{
		ID:         p.ID,
		Kind:       ItemPost,
		GroupID:    p.GroupID,
		AuthorID:   p.AuthorID,
		AuthorName: p.AuthorName,
		Title:      p.Title,
		Body:       p.Body,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (c *Comment) ToFeedItem() FeedItem {
	return FeedItem{
		ID:         c.ID,
		Kind:       ItemComment,
		GroupID:    c.GroupID,
		PostID:     c.PostID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Body:       c.Body,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// DisplayName falls back to AnonymousName for blank names.
func DisplayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return AnonymousName
	}
	return name
}
