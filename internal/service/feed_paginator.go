package service

import (
	"context"
	"sync"

	"github.com/noteduco342/moim-backend/internal/metrics"
	"github.com/noteduco342/moim-backend/internal/models"
	"github.com/noteduco342/moim-backend/internal/validation"
)

// FeedSource reads the children of a parent in a fixed ordering.
type FeedSource interface {
	Query(ctx context.Context, parentID string, ordering models.Ordering, limit int, after *models.Cursor) ([]models.FeedItem, error)
}

type FeedMode string

const (
	ModeServer   FeedMode = "server"
	ModeFiltered FeedMode = "filtered"
)

// FeedPage is one server page and the cursor of its last item.
type FeedPage struct {
	Items  []models.FeedItem
	Cursor *models.Cursor
}

// FeedView is the visible state of a paginator.
type FeedView struct {
	Parent   models.Parent     `json:"parent"`
	Mode     FeedMode          `json:"mode"`
	Items    []models.FeedItem `json:"items"`
	Pages    int               `json:"pages"`
	HasMore  bool              `json:"has_more"`
	Loading  bool              `json:"loading"`
	Filter   string            `json:"filter,omitempty"`
	Matches  int               `json:"matches,omitempty"`
	Revealed int               `json:"revealed,omitempty"`
	// Cursor is the encoded position after the last server page.
	Cursor string `json:"cursor,omitempty"`
}

// FeedPaginator pages through a parent's children newest first. Without a
// filter it advances a server cursor page by page. With a filter it reads up
// to ceiling items once, keeps the matches in memory and reveals them a page
// at a time.
//
// Store calls run without holding the lock. Every reset bumps a generation
// number and results fetched under an older generation are dropped.
type FeedPaginator struct {
	source   FeedSource
	pageSize int
	ceiling  int

	mu         sync.Mutex
	parent     models.Parent
	pages      []FeedPage
	moreServer bool
	filter     string
	buffer     []models.FeedItem
	revealed   int
	inFlight   bool
	generation uint64
}

func NewFeedPaginator(source FeedSource, parent models.Parent, pageSize, ceiling int) *FeedPaginator {
	if pageSize < 1 {
		pageSize = 10
	}
	if ceiling < pageSize {
		ceiling = pageSize
	}
	return &FeedPaginator{
		source:   source,
		pageSize: pageSize,
		ceiling:  ceiling,
		parent:   parent,
	}
}

func (p *FeedPaginator) Parent() models.Parent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parent
}

// LoadFirstPage fetches the newest page and replaces all state with it. On
// failure the previous state is kept.
func (p *FeedPaginator) LoadFirstPage(ctx context.Context) (FeedView, error) {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.inFlight = true
	parent := p.parent
	p.mu.Unlock()

	items, err := p.source.Query(ctx, parent.ID, models.OrderCreatedDesc, p.pageSize, nil)
	metrics.FeedFetches.WithLabelValues(string(ModeServer), metrics.Result(err)).Inc()

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		metrics.FeedStaleDrops.Inc()
		return p.viewLocked(), nil
	}
	p.inFlight = false
	if err != nil {
		return p.viewLocked(), classify(err)
	}

	p.pages = nil
	p.appendPageLocked(items)
	p.moreServer = len(items) == p.pageSize
	p.filter = ""
	p.buffer = nil
	p.revealed = 0
	return p.viewLocked(), nil
}

// LoadNextPage fetches the page after the last cursor. It does nothing while
// another fetch runs, when the last page was short, before the first page
// exists, or while a filter is active.
func (p *FeedPaginator) LoadNextPage(ctx context.Context) (FeedView, error) {
	p.mu.Lock()
	if p.inFlight || !p.moreServer || len(p.pages) == 0 || p.filter != "" {
		view := p.viewLocked()
		p.mu.Unlock()
		return view, nil
	}
	gen := p.generation
	cursor := p.pages[len(p.pages)-1].Cursor
	parent := p.parent
	p.inFlight = true
	p.mu.Unlock()

	items, err := p.source.Query(ctx, parent.ID, models.OrderCreatedDesc, p.pageSize, cursor)
	metrics.FeedFetches.WithLabelValues(string(ModeServer), metrics.Result(err)).Inc()

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		metrics.FeedStaleDrops.Inc()
		return p.viewLocked(), nil
	}
	p.inFlight = false
	if err != nil {
		return p.viewLocked(), classify(err)
	}

	p.appendPageLocked(items)
	p.moreServer = len(items) == p.pageSize
	return p.viewLocked(), nil
}

// ApplyFilter switches to filtered mode for a non-blank term. A blank term
// drops the filter and its buffer, then reloads from the first page. The
// filter stays dropped even when that reload fails.
func (p *FeedPaginator) ApplyFilter(ctx context.Context, term string) (FeedView, error) {
	term = validation.NormalizeSearchTerm(term)
	if term == "" {
		p.mu.Lock()
		if p.filter != "" {
			p.filter = ""
			p.buffer = nil
			p.revealed = 0
			p.pages = nil
			p.moreServer = false
		}
		p.mu.Unlock()
		return p.LoadFirstPage(ctx)
	}

	p.mu.Lock()
	p.generation++
	gen := p.generation
	p.inFlight = true
	parent := p.parent
	p.mu.Unlock()

	items, err := p.source.Query(ctx, parent.ID, models.OrderCreatedDesc, p.ceiling, nil)
	metrics.FeedFetches.WithLabelValues(string(ModeFiltered), metrics.Result(err)).Inc()

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.generation {
		metrics.FeedStaleDrops.Inc()
		return p.viewLocked(), nil
	}
	p.inFlight = false
	if err != nil {
		return p.viewLocked(), classify(err)
	}

	matches := make([]models.FeedItem, 0, len(items))
	for _, item := range items {
		if item.Matches(term) {
			matches = append(matches, item)
		}
	}
	p.filter = term
	p.buffer = matches
	p.revealed = min(p.pageSize, len(matches))
	p.pages = nil
	p.moreServer = false
	return p.viewLocked(), nil
}

// AdvanceReveal shows the next page of buffered matches without touching the
// store. Outside filtered mode it does nothing.
func (p *FeedPaginator) AdvanceReveal() FeedView {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revealLocked()
	return p.viewLocked()
}

// OnScrollNearEnd advances whichever mode is active. It is ignored while a
// fetch is pending.
func (p *FeedPaginator) OnScrollNearEnd(ctx context.Context) (FeedView, error) {
	p.mu.Lock()
	if p.inFlight {
		view := p.viewLocked()
		p.mu.Unlock()
		return view, nil
	}
	if p.filter != "" {
		p.revealLocked()
		view := p.viewLocked()
		p.mu.Unlock()
		return view, nil
	}
	p.mu.Unlock()
	return p.LoadNextPage(ctx)
}

// Reset discards every page and the filter, and points the paginator at
// parent. Fetches still in flight are dropped when they return.
func (p *FeedPaginator) Reset(parent models.Parent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.parent = parent
	p.pages = nil
	p.moreServer = false
	p.filter = ""
	p.buffer = nil
	p.revealed = 0
	p.inFlight = false
}

func (p *FeedPaginator) View() FeedView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

func (p *FeedPaginator) revealLocked() {
	if p.filter == "" {
		return
	}
	p.revealed = min(p.revealed+p.pageSize, len(p.buffer))
}

// appendPageLocked adds a page for a non-empty result. Empty results add
// nothing, so N items always span ceil(N/pageSize) pages.
func (p *FeedPaginator) appendPageLocked(items []models.FeedItem) {
	if len(items) == 0 {
		return
	}
	page := FeedPage{
		Items:  items,
		Cursor: models.CursorAfter(models.OrderCreatedDesc, items[len(items)-1]),
	}
	p.pages = append(p.pages, page)
}

func (p *FeedPaginator) viewLocked() FeedView {
	view := FeedView{
		Parent:  p.parent,
		Mode:    ModeServer,
		Pages:   len(p.pages),
		HasMore: p.moreServer,
		Loading: p.inFlight,
	}
	if p.filter != "" {
		view.Mode = ModeFiltered
		view.Filter = p.filter
		view.Matches = len(p.buffer)
		view.Revealed = p.revealed
		view.HasMore = p.revealed < len(p.buffer)
		view.Items = append(make([]models.FeedItem, 0, p.revealed), p.buffer[:p.revealed]...)
		return view
	}
	view.Items = make([]models.FeedItem, 0, len(p.pages)*p.pageSize)
	for _, page := range p.pages {
		view.Items = append(view.Items, page.Items...)
	}
	if n := len(p.pages); n > 0 {
		view.Cursor, _ = p.pages[n-1].Cursor.Encode()
	}
	return view
}
