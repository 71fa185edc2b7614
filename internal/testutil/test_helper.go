package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/noteduco342/moim-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// OpenTestDB returns a migrated in-memory SQLite database private to the test.
// A single connection is used so concurrent transactions queue instead of
// failing with "database is locked".
func (h *TestHelper) OpenTestDB() *gorm.DB {
	h.t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(h.t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		h.t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		h.t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	h.t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&models.Group{}, &models.GroupMember{}, &models.Post{}, &models.Comment{}); err != nil {
		h.t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateTestGroup builds a group owned by ownerID whose members are the owner
// followed by extra.
func (h *TestHelper) CreateTestGroup(id, ownerID string, capacity int, extra ...string) *models.Group {
	if id == "" {
		id = models.NewID()
	}
	if ownerID == "" {
		ownerID = "owner"
	}

	group := &models.Group{
		ID:        id,
		Name:      "Test Group",
		OwnerID:   ownerID,
		Capacity:  capacity,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	for _, userID := range append([]string{ownerID}, extra...) {
		group.Members = append(group.Members, models.GroupMember{GroupID: id, UserID: userID})
	}
	return group
}

// CreateTestPosts builds n posts in groupID, one second apart starting at base.
func (h *TestHelper) CreateTestPosts(groupID string, n int, base time.Time) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		at := base.Add(time.Duration(i) * time.Second).UTC()
		posts[i] = models.Post{
			ID:         models.NewID(),
			GroupID:    groupID,
			AuthorID:   "author",
			AuthorName: "Author",
			Title:      fmt.Sprintf("Post %d", i),
			Body:       fmt.Sprintf("Body of post %d", i),
			CreatedAt:  at,
			UpdatedAt:  at,
		}
	}
	return posts
}

// CreateTestComments builds n comments on post, one second apart starting at base.
func (h *TestHelper) CreateTestComments(post *models.Post, n int, base time.Time) []models.Comment {
	comments := make([]models.Comment, n)
	for i := range comments {
		at := base.Add(time.Duration(i) * time.Second).UTC()
		comments[i] = models.Comment{
			ID:         models.NewID(),
			GroupID:    post.GroupID,
			PostID:     post.ID,
			AuthorID:   "commenter",
			AuthorName: "Commenter",
			Body:       fmt.Sprintf("Comment %d", i),
			CreatedAt:  at,
			UpdatedAt:  at,
		}
	}
	return comments
}

// Seed inserts every value into db and fails the test on error.
func (h *TestHelper) Seed(db *gorm.DB, values ...interface{}) {
	h.t.Helper()
	for _, v := range values {
		if err := db.WithContext(context.Background()).Create(v).Error; err != nil {
			h.t.Fatalf("seed %T: %v", v, err)
		}
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
	os.Setenv("FEED_PAGE_SIZE", "10")
	os.Setenv("CASCADE_BATCH_SIZE", "300")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("FEED_PAGE_SIZE")
	os.Unsetenv("CASCADE_BATCH_SIZE")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}

// GetRecordNotFoundError returns the store's not-found error
func GetRecordNotFoundError() error {
	return gorm.ErrRecordNotFound
}
