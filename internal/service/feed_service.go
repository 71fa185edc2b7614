package service

import (
	"context"
	"sync"
	"time"

	"github.com/noteduco342/moim-backend/internal/metrics"
	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/repository"
)

// feedIdleTTL is how long an untouched viewer context is kept.
const feedIdleTTL = 30 * time.Minute

type postFeedSource struct {
	posts repository.PostRepositoryInterface
}

func (s postFeedSource) Query(ctx context.Context, groupID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.FeedItem, error) {
	posts, err := s.posts.QueryOrdered(ctx, groupID, ordering, limit, after)
	if err != nil {
		return nil, err
	}
	items := make([]models.FeedItem, len(posts))
	for i := range posts {
		items[i] = posts[i].ToFeedItem()
	}
	return items, nil
}

type commentFeedSource struct {
	comments repository.CommentRepositoryInterface
}

func (s commentFeedSource) Query(ctx context.Context, postID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.FeedItem, error) {
	comments, err := s.comments.QueryOrdered(ctx, postID, ordering, limit, after)
	if err != nil {
		return nil, err
	}
	items := make([]models.FeedItem, len(comments))
	for i := range comments {
		items[i] = comments[i].ToFeedItem()
	}
	return items, nil
}

type feedContext struct {
	paginator *FeedPaginator
	lastUsed  time.Time
}

// FeedService keeps one paginator per viewer. Asking for a different parent
// replaces the viewer's paginator, discarding its pages and filter.
type FeedService struct {
	sources  map[models.ParentKind]FeedSource
	pageSize int
	ceiling  int

	mu    sync.Mutex
	feeds map[string]*feedContext
	now   func() time.Time
}

func NewFeedService(
	posts repository.PostRepositoryInterface,
	comments repository.CommentRepositoryInterface,
	pageSize, ceiling int,
) *FeedService {
	return &FeedService{
		sources: map[models.ParentKind]FeedSource{
			models.ParentGroup: postFeedSource{posts: posts},
			models.ParentPost:  commentFeedSource{comments: comments},
		},
		pageSize: pageSize,
		ceiling:  ceiling,
		feeds:    make(map[string]*feedContext),
		now:      time.Now,
	}
}

// ListFeedPage starts the viewer's feed over at the newest page of parent.
func (s *FeedService) ListFeedPage(ctx context.Context, viewerID string, parent models.Parent) (FeedView, error) {
	p, _, err := s.paginator(viewerID, parent)
	if err != nil {
		return FeedView{}, err
	}
	return p.LoadFirstPage(ctx)
}

// AdvanceFeedPage loads the next server page, or the first one when the
// viewer has no context for parent yet.
func (s *FeedService) AdvanceFeedPage(ctx context.Context, viewerID string, parent models.Parent) (FeedView, error) {
	p, created, err := s.paginator(viewerID, parent)
	if err != nil {
		return FeedView{}, err
	}
	if created {
		return p.LoadFirstPage(ctx)
	}
	return p.LoadNextPage(ctx)
}

func (s *FeedService) SearchFeed(ctx context.Context, viewerID string, parent models.Parent, term string) (FeedView, error) {
	p, _, err := s.paginator(viewerID, parent)
	if err != nil {
		return FeedView{}, err
	}
	return p.ApplyFilter(ctx, term)
}

func (s *FeedService) AdvanceSearchReveal(ctx context.Context, viewerID string, parent models.Parent) (FeedView, error) {
	p, created, err := s.paginator(viewerID, parent)
	if err != nil {
		return FeedView{}, err
	}
	if created {
		return p.LoadFirstPage(ctx)
	}
	return p.AdvanceReveal(), nil
}

func (s *FeedService) ScrollNearEnd(ctx context.Context, viewerID string, parent models.Parent) (FeedView, error) {
	p, created, err := s.paginator(viewerID, parent)
	if err != nil {
		return FeedView{}, err
	}
	if created {
		return p.LoadFirstPage(ctx)
	}
	return p.OnScrollNearEnd(ctx)
}

// PageAfter reads one page of parent after an encoded cursor without touching
// any viewer context. An empty cursor reads the newest page.
func (s *FeedService) PageAfter(ctx context.Context, parent models.Parent, encoded string) (FeedView, error) {
	if !parent.Valid() {
		return FeedView{}, ErrNotFound
	}
	source, ok := s.sources[parent.Kind]
	if !ok {
		return FeedView{}, ErrNotFound
	}

	var after *models.Cursor
	if encoded != "" {
		cursor, err := models.DecodeCursor(encoded, models.OrderCreatedDesc)
		if err != nil {
			return FeedView{}, err
		}
		after = cursor
	}

	items, err := source.Query(ctx, parent.ID, models.OrderCreatedDesc, s.pageSize, after)
	metrics.FeedFetches.WithLabelValues("cursor", metrics.Result(err)).Inc()
	if err != nil {
		return FeedView{}, classify(err)
	}

	view := FeedView{
		Parent:  parent,
		Mode:    ModeServer,
		Items:   items,
		HasMore: len(items) == s.pageSize,
	}
	if len(items) > 0 {
		view.Pages = 1
		view.Cursor, _ = models.CursorAfter(models.OrderCreatedDesc, items[len(items)-1]).Encode()
	}
	return view, nil
}

// Discard drops the viewer's feed context.
func (s *FeedService) Discard(viewerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fc, ok := s.feeds[viewerID]; ok {
		fc.paginator.Reset(models.Parent{})
		delete(s.feeds, viewerID)
	}
}

func (s *FeedService) paginator(viewerID string, parent models.Parent) (*FeedPaginator, bool, error) {
	if !parent.Valid() {
		return nil, false, ErrNotFound
	}
	source, ok := s.sources[parent.Kind]
	if !ok {
		return nil, false, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictIdleLocked(now)

	if fc, ok := s.feeds[viewerID]; ok && fc.paginator.Parent() == parent {
		fc.lastUsed = now
		return fc.paginator, false, nil
	} else if ok {
		fc.paginator.Reset(models.Parent{})
	}

	p := NewFeedPaginator(source, parent, s.pageSize, s.ceiling)
	s.feeds[viewerID] = &feedContext{paginator: p, lastUsed: now}
	return p, true, nil
}

func (s *FeedService) evictIdleLocked(now time.Time) {
	for viewerID, fc := range s.feeds {
		if now.Sub(fc.lastUsed) > feedIdleTTL {
			delete(s.feeds, viewerID)
		}
	}
}
