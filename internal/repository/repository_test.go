package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errFull = errors.New("full")

func addMember(userID string) GroupMutation {
	return func(g *models.Group) error {
		if g.IsMember(userID) {
			return nil
		}
		if g.IsFull() {
			return errFull
		}
		g.Members = append(g.Members, models.GroupMember{GroupID: g.ID, UserID: userID})
		return nil
	}
}

func TestGroupRepositoryTransact(t *testing.T) {
	h := testutil.NewTestHelper(t)
	db := h.OpenTestDB()
	repo := NewGroupRepository(db)
	ctx := context.Background()

	group := h.CreateTestGroup("", "owner", 3)
	require.NoError(t, repo.Create(ctx, group))

	committed, err := repo.Transact(ctx, group.ID, addMember("a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "a"}, committed.MemberIDs())

	committed, err = repo.Transact(ctx, group.ID, func(g *models.Group) error {
		g.OwnerID = "a"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a", committed.OwnerID)

	_, err = repo.Transact(ctx, group.ID, func(g *models.Group) error {
		g.Members = nil
		return errFull
	})
	assert.ErrorIs(t, err, errFull)

	stored, err := repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.MemberCount(), "aborted mutation must not be written")

	committed, err = repo.Transact(ctx, group.ID, func(g *models.Group) error {
		kept := g.Members[:0]
		for _, m := range g.Members {
			if m.UserID != "owner" {
				kept = append(kept, m)
			}
		}
		g.Members = kept
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, committed.MemberIDs())
}

func TestGroupRepositoryTransactNotFound(t *testing.T) {
	h := testutil.NewTestHelper(t)
	repo := NewGroupRepository(h.OpenTestDB())

	called := false
	_, err := repo.Transact(context.Background(), "missing", func(*models.Group) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.False(t, called)
}

func TestGroupRepositoryConcurrentJoinsRespectCapacity(t *testing.T) {
	h := testutil.NewTestHelper(t)
	repo := NewGroupRepository(h.OpenTestDB())
	ctx := context.Background()

	group := h.CreateTestGroup("", "owner", 2)
	require.NoError(t, repo.Create(ctx, group))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []string{"x", "y"} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = repo.Transact(ctx, group.ID, addMember(userID))
		}(i, userID)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, errFull)
		}
	}
	assert.Equal(t, 1, successes)

	stored, err := repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.MemberCount())
}

func TestGroupRepositoryDirectory(t *testing.T) {
	h := testutil.NewTestHelper(t)
	db := h.OpenTestDB()
	repo := NewGroupRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]string, 5)
	for i := range ids {
		var extra []string
		if i%2 == 1 {
			extra = append(extra, "alice")
		}
		group := h.CreateTestGroup("", "owner", 0, extra...)
		group.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		h.Seed(db, group)
		ids[i] = group.ID
	}

	first, err := repo.QueryOrdered(ctx, models.OrderCreatedDesc, 3, nil)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, []string{ids[4], ids[3], ids[2]}, []string{first[0].ID, first[1].ID, first[2].ID})
	assert.ElementsMatch(t, []string{"owner", "alice"}, first[1].MemberIDs(), "members are loaded with the page")

	rest, err := repo.QueryOrdered(ctx, models.OrderCreatedDesc, 3, models.GroupCursor(models.OrderCreatedDesc, &first[2]))
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, ids[1], rest[0].ID)
	assert.Equal(t, ids[0], rest[1].ID)

	mine, err := repo.QueryByMember(ctx, "alice", models.OrderCreatedDesc, 10, nil)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, ids[3], mine[0].ID)
	assert.Equal(t, ids[1], mine[1].ID)

	none, err := repo.QueryByMember(ctx, "nobody", models.OrderCreatedDesc, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.QueryOrdered(ctx, models.OrderCreatedDesc, 3, models.GroupCursor(models.OrderCreatedAsc, &first[2]))
	assert.ErrorIs(t, err, models.ErrCursorOrdering)
}

func TestPostRepositoryQueryOrderedCoversEveryPost(t *testing.T) {
	h := testutil.NewTestHelper(t)
	db := h.OpenTestDB()
	repo := NewPostRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	posts := h.CreateTestPosts("g1", 23, base)
	// Two posts sharing a timestamp must still be ordered deterministically.
	posts[5].CreatedAt = posts[6].CreatedAt
	h.Seed(db, &posts)
	h.Seed(db, &h.CreateTestPosts("other", 4, base)[0])

	seen := make(map[string]bool)
	var cursor *models.Cursor
	var last *models.Post
	pages := 0
	for {
		page, err := repo.QueryOrdered(ctx, "g1", models.OrderCreatedDesc, 10, cursor)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		pages++
		for i := range page {
			p := page[i]
			assert.False(t, seen[p.ID], "post %s returned twice", p.ID)
			seen[p.ID] = true
			if last != nil {
				before := p.CreatedAt.Before(last.CreatedAt) ||
					(p.CreatedAt.Equal(last.CreatedAt) && p.ID < last.ID)
				assert.True(t, before, "posts out of order")
			}
			last = &p
		}
		cursor = models.CursorAfter(models.OrderCreatedDesc, page[len(page)-1].ToFeedItem())
	}

	assert.Len(t, seen, 23)
	assert.Equal(t, 3, pages)
}

func TestPostRepositoryRejectsForeignCursor(t *testing.T) {
	h := testutil.NewTestHelper(t)
	repo := NewPostRepository(h.OpenTestDB())

	cursor := &models.Cursor{Ordering: models.OrderCreatedAsc, CreatedAt: time.Now(), ID: "x"}
	_, err := repo.QueryOrdered(context.Background(), "g1", models.OrderCreatedDesc, 10, cursor)
	assert.ErrorIs(t, err, models.ErrCursorOrdering)
}

func TestPostRepositoryUpdateAndDelete(t *testing.T) {
	h := testutil.NewTestHelper(t)
	db := h.OpenTestDB()
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := h.CreateTestPosts("g1", 1, time.Now())[0]
	require.NoError(t, repo.Create(ctx, &post))

	require.NoError(t, repo.Update(ctx, post.ID, "New title", "New body"))
	stored, err := repo.FindByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", stored.Title)

	assert.ErrorIs(t, repo.Update(ctx, "missing", "t", "b"), gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, post.ID))
	require.NoError(t, repo.Delete(ctx, post.ID), "deleting twice is not an error")
	_, err = repo.FindByID(ctx, post.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCommentRepositoryBatches(t *testing.T) {
	h := testutil.NewTestHelper(t)
	db := h.OpenTestDB()
	repo := NewCommentRepository(db)
	ctx := context.Background()

	post := h.CreateTestPosts("g1", 1, time.Now())[0]
	comments := h.CreateTestComments(&post, 7, time.Now())
	h.Seed(db, &post, &comments)

	var rounds []int
	for {
		ids, err := repo.FetchBatch(ctx, post.ID, 3)
		require.NoError(t, err)
		if len(ids) == 0 {
			break
		}
		rounds = append(rounds, len(ids))
		require.NoError(t, repo.BatchDelete(ctx, ids))
	}
	assert.Equal(t, []int{3, 3, 1}, rounds)

	remaining, err := repo.QueryOrdered(ctx, post.ID, models.OrderCreatedAsc, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestCommentRepositoryAscendingThread(t *testing.T) {
	h := testutil.NewTestHelper(t)
	db := h.OpenTestDB()
	repo := NewCommentRepository(db)
	ctx := context.Background()

	post := h.CreateTestPosts("g1", 1, time.Now())[0]
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	comments := h.CreateTestComments(&post, 4, base)
	h.Seed(db, &comments)

	first, err := repo.QueryOrdered(ctx, post.ID, models.OrderCreatedAsc, 2, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, comments[0].ID, first[0].ID)

	cursor := models.CursorAfter(models.OrderCreatedAsc, first[1].ToFeedItem())
	rest, err := repo.QueryOrdered(ctx, post.ID, models.OrderCreatedAsc, 10, cursor)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, comments[3].ID, rest[1].ID)

	require.NoError(t, repo.Update(ctx, comments[2].ID, "edited"))
	edited, err := repo.FindByID(ctx, comments[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Body)
}
