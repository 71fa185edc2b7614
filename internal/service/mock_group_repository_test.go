package service

import (
	"context"
	"sync"
	"time"

	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/repository"
	"gorm.io/gorm"
)

// MockGroupRepository is a mock implementation for tests
// It implements repository.GroupRepositoryInterface.
// Transact holds a single lock for the whole mutation, like a row lock.
type MockGroupRepository struct {
	mu     sync.Mutex
	groups map[string]*models.Group
	clock  time.Time

	// transactErr, when set, is returned by Transact before fn runs and by
	// every query.
	transactErr error
	// beforeCommit runs inside Transact after fn succeeded.
	beforeCommit func()
	writes       int
}

func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{
		groups: make(map[string]*models.Group),
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *MockGroupRepository) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if group.ID == "" {
		group.ID = models.NewID()
	}
	now := m.tick()
	group.CreatedAt, group.UpdatedAt = now, now
	m.groups[group.ID] = group.Clone()
	return nil
}

func (m *MockGroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[id]; ok {
		return g.Clone(), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockGroupRepository) Transact(ctx context.Context, id string, fn repository.GroupMutation) (*models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transactErr != nil {
		return nil, m.transactErr
	}
	current, ok := m.groups[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if m.beforeCommit != nil {
		m.beforeCommit()
	}
	if !sameGroup(current, next) {
		next.UpdatedAt = m.tick()
		m.groups[id] = next
		m.writes++
	}
	return m.groups[id].Clone(), nil
}

func (m *MockGroupRepository) QueryOrdered(ctx context.Context, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Group, error) {
	return m.query(ordering, limit, after, func(*models.Group) bool { return true })
}

func (m *MockGroupRepository) QueryByMember(ctx context.Context, userID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.Group, error) {
	return m.query(ordering, limit, after, func(g *models.Group) bool { return g.IsMember(userID) })
}

func (m *MockGroupRepository) query(ordering models.Ordering, limit int, after *models.Cursor, keep func(*models.Group) bool) ([]models.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transactErr != nil {
		return nil, m.transactErr
	}
	keys := make([]models.FeedItem, 0, len(m.groups))
	for _, g := range m.groups {
		if keep(g) {
			keys = append(keys, models.FeedItem{ID: g.ID, CreatedAt: g.CreatedAt})
		}
	}
	ordered, err := orderItems(keys, ordering, limit, after)
	if err != nil {
		return nil, err
	}
	out := make([]models.Group, 0, len(ordered))
	for _, key := range ordered {
		out = append(out, *m.groups[key.ID].Clone())
	}
	return out, nil
}

func (m *MockGroupRepository) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func sameGroup(a, b *models.Group) bool {
	if a.OwnerID != b.OwnerID || len(a.Members) != len(b.Members) {
		return false
	}
	for i := range a.Members {
		if a.Members[i].UserID != b.Members[i].UserID {
			return false
		}
	}
	return true
}
