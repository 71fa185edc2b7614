package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/noteduco342/moim-backend/internal/models"
	"gorm.io/gorm"
)

// orderItems sorts by (created_at, id) in the given ordering and returns the
// items strictly after the cursor, up to limit.
func orderItems(items []models.FeedItem, ordering models.Ordering, limit int, after *models.Cursor) ([]models.FeedItem, error) {
	if err := after.Check(ordering); err != nil {
		return nil, err
	}
	less := func(a, b models.FeedItem) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	sort.Slice(items, func(i, j int) bool {
		if ordering == models.OrderCreatedAsc {
			return less(items[i], items[j])
		}
		return less(items[j], items[i])
	})

	out := make([]models.FeedItem, 0, len(items))
	for _, it := range items {
		if after != nil {
			mark := models.FeedItem{ID: after.ID, CreatedAt: after.CreatedAt}
			if ordering == models.OrderCreatedAsc && !less(mark, it) {
				continue
			}
			if ordering == models.OrderCreatedDesc && !less(it, mark) {
				continue
			}
		}
		out = append(out, it)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MockPostRepository implements repository.PostRepositoryInterface.
type MockPostRepository struct {
	mu      sync.Mutex
	posts   map[string]*models.Post
	queries []int // limit of every QueryOrdered call

	queryErr  error
	deleteErr error
	// queryGate, when set, is received from before QueryOrdered answers.
	queryGate chan struct{}
}

func NewMockPostRepository() *MockPostRepository {
	return &MockPostRepository{posts: make(map[string]*models.Post)}
}

// Seed adds n posts to groupID, newest last, and returns them.
func (m *MockPostRepository) Seed(groupID string, n int, titles ...string) []models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Post, n)
	for i := 0; i < n; i++ {
		title := "post"
		if i < len(titles) {
			title = titles[i]
		}
		p := models.Post{
			ID:         models.NewID(),
			GroupID:    groupID,
			AuthorID:   "author",
			AuthorName: "Author",
			Title:      title,
			Body:       "body",
			CreatedAt:  base.Add(time.Duration(len(m.posts)) * time.Minute),
		}
		m.posts[p.ID] = &p
		out[i] = p
	}
	return out
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *MockPostRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockPostRepository) Update(ctx context.Context, id, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Title, p.Body = title, body
	return nil
}

func (m *MockPostRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.posts, id)
	return nil
}

func (m *MockPostRepository) QueryOrdered(ctx context.Context, groupID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Post, error) {
	if m.queryGate != nil {
		<-m.queryGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, limit)
	if m.queryErr != nil {
		return nil, m.queryErr
	}

	byID := make(map[string]*models.Post)
	var items []models.FeedItem
	for _, p := range m.posts {
		if p.GroupID == groupID {
			byID[p.ID] = p
			items = append(items, p.ToFeedItem())
		}
	}
	ordered, err := orderItems(items, ordering, limit, after)
	if err != nil {
		return nil, err
	}
	out := make([]models.Post, len(ordered))
	for i, it := range ordered {
		out[i] = *byID[it.ID]
	}
	return out, nil
}

func (m *MockPostRepository) Queries() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.queries...)
}

func (m *MockPostRepository) SetQueryErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// MockCommentRepository implements repository.CommentRepositoryInterface.
type MockCommentRepository struct {
	mu       sync.Mutex
	comments map[string]*models.Comment
	rounds   []int // size of every BatchDelete

	fetchErr error
	// deleteErrOnRound fails the BatchDelete call with this 1-based index.
	deleteErrOnRound int
	deleteErr        error
	batchCalls       int
}

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{comments: make(map[string]*models.Comment)}
}

// Seed adds n comments to the post, oldest first.
func (m *MockCommentRepository) Seed(post models.Post, n int) []models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Comment, n)
	for i := 0; i < n; i++ {
		c := models.Comment{
			ID:        models.NewID(),
			GroupID:   post.GroupID,
			PostID:    post.ID,
			AuthorID:  "commenter",
			Body:      "comment",
			CreatedAt: base.Add(time.Duration(len(m.comments)) * time.Minute),
		}
		m.comments[c.ID] = &c
		out[i] = c
	}
	return out
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now()
	}
	cp := *comment
	m.comments[comment.ID] = &cp
	return nil
}

func (m *MockCommentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.comments[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockCommentRepository) Update(ctx context.Context, id, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Body = body
	return nil
}

func (m *MockCommentRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.comments, id)
	return nil
}

func (m *MockCommentRepository) QueryOrdered(ctx context.Context, postID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := make(map[string]*models.Comment)
	var items []models.FeedItem
	for _, c := range m.comments {
		if c.PostID == postID {
			byID[c.ID] = c
			items = append(items, c.ToFeedItem())
		}
	}
	ordered, err := orderItems(items, ordering, limit, after)
	if err != nil {
		return nil, err
	}
	out := make([]models.Comment, len(ordered))
	for i, it := range ordered {
		out[i] = *byID[it.ID]
	}
	return out, nil
}

func (m *MockCommentRepository) FetchBatch(ctx context.Context, postID string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	var ids []string
	for id, c := range m.comments {
		if c.PostID == postID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *MockCommentRepository) BatchDelete(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.deleteErrOnRound == m.batchCalls {
		return m.deleteErr
	}
	for _, id := range ids {
		delete(m.comments, id)
	}
	m.rounds = append(m.rounds, len(ids))
	return nil
}

func (m *MockCommentRepository) Count(postID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}
