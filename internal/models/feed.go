package models

import (
	"fmt"
	"strings"
	"time"
)

type ParentKind string

const (
	// ParentGroup addresses the post board of a group.
	ParentGroup ParentKind = "group"
	// ParentPost addresses the comment thread of a post.
	ParentPost ParentKind = "post"
)

type ItemKind string

const (
	ItemPost    ItemKind = "post"
	ItemComment ItemKind = "comment"
)

// Parent identifies the ordered child collection a feed is served from.
type Parent struct {
	Kind ParentKind `json:"kind"`
	ID   string     `json:"id"`
}

func GroupParent(groupID string) Parent {
	return Parent{Kind: ParentGroup, ID: groupID}
}

func PostParent(postID string) Parent {
	return Parent{Kind: ParentPost, ID: postID}
}

func (p Parent) String() string {
	return fmt.Sprintf("%s:%s", p.Kind, p.ID)
}

func (p Parent) Valid() bool {
	return (p.Kind == ParentGroup || p.Kind == ParentPost) && p.ID != ""
}

// FeedItem is the read model shared by posts and comments.
type FeedItem struct {
	ID         string    `json:"id"`
	Kind       ItemKind  `json:"kind"`
	GroupID    string    `json:"group_id"`
	PostID     string    `json:"post_id,omitempty"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Title      string    `json:"title,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Matches reports whether the lower-cased term occurs in the title, body or
// author name, ignoring case.
func (it *FeedItem) Matches(lowerTerm string) bool {
	if lowerTerm == "" {
		return true
	}
	return strings.Contains(strings.ToLower(it.Title), lowerTerm) ||
		strings.Contains(strings.ToLower(it.Body), lowerTerm) ||
		strings.Contains(strings.ToLower(it.AuthorName), lowerTerm)
}
