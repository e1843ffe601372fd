package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/linesmerrill/forensic-case-api/models"
)

// Defaults of the occurrence list screen
const (
	DefaultSearchDebounce = 400 * time.Millisecond
	DefaultPageSize       = 10
	// AllForensicServices clears the service filter
	AllForensicServices = "all"
)

// Assignment badges
const (
	BadgePool     = "POOL"
	BadgeAssigned = "ATRIBUÍDO"
)

// AssignmentBadge labels pool cases, the ones without a responsible expert
func AssignmentBadge(o models.GeneralOccurrence) string {
	if o.IsPool() {
		return BadgePool
	}
	return BadgeAssigned
}

// OccurrenceList drives the server paged occurrence table. Every input change
// starts a new request; only the answer to the latest one is kept.
type OccurrenceList struct {
	c        *Client
	debounce time.Duration
	onChange func(models.Page[models.GeneralOccurrence])

	base     context.Context
	stopBase context.CancelFunc

	mu            sync.Mutex
	query         OccurrenceQuery
	pendingSearch string
	timer         *time.Timer
	generation    uint64
	cancel        context.CancelFunc
	result        models.Page[models.GeneralOccurrence]
	loading       bool
	idle          sync.WaitGroup

	// held while onChange runs so pages reach it in generation order
	deliver sync.Mutex
}

// ListOption customizes an OccurrenceList
type ListOption func(*OccurrenceList)

// WithDebounce changes the search debounce window
func WithDebounce(d time.Duration) ListOption {
	return func(l *OccurrenceList) {
		l.debounce = d
	}
}

// WithPageSize changes the initial page size
func WithPageSize(size int) ListOption {
	return func(l *OccurrenceList) {
		l.query.Limit = size
	}
}

// OnChange registers fn to receive every page that replaces the table
func OnChange(fn func(models.Page[models.GeneralOccurrence])) ListOption {
	return func(l *OccurrenceList) {
		l.onChange = fn
	}
}

// NewOccurrenceList creates the controller on page 1. Nothing is fetched
// until Load.
func NewOccurrenceList(c *Client, opts ...ListOption) *OccurrenceList {
	l := &OccurrenceList{
		c:        c,
		debounce: DefaultSearchDebounce,
		query:    OccurrenceQuery{ListQuery: ListQuery{Page: 1, Limit: DefaultPageSize}},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.base, l.stopBase = context.WithCancel(context.Background())
	return l
}

// Load fetches the current page
func (l *OccurrenceList) Load() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetchLocked()
}

// Reload fetches the current page again, e.g. when the console regains focus
func (l *OccurrenceList) Reload() {
	l.Load()
}

// SetSearch debounces term. Repeating the pending term changes nothing; a
// term that survives the debounce window resets to page 1 and fetches.
func (l *OccurrenceList) SetSearch(term string) {
	term = strings.TrimSpace(term)
	l.mu.Lock()
	defer l.mu.Unlock()
	if term == l.pendingSearch {
		return
	}
	l.pendingSearch = term
	if l.timer != nil && l.timer.Stop() {
		l.idle.Done()
	}
	l.idle.Add(1)
	l.timer = time.AfterFunc(l.debounce, func() {
		defer l.idle.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.query.Search == term {
			return
		}
		l.query.Search = term
		l.query.Page = 1
		l.fetchLocked()
	})
}

// SetForensicService filters by service; AllForensicServices or "" clears it
func (l *OccurrenceList) SetForensicService(id string) {
	if id == AllForensicServices {
		id = ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.query.ForensicServiceID == id {
		return
	}
	l.query.ForensicServiceID = id
	l.query.Page = 1
	l.fetchLocked()
}

// SetOnlyMine toggles the "only mine" filter and reloads at once
func (l *OccurrenceList) SetOnlyMine(onlyMine bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query.OnlyMine = onlyMine
	l.query.Page = 1
	l.fetchLocked()
}

// SetPage moves the paginator. page counts from 1.
func (l *OccurrenceList) SetPage(page, size int) {
	if page < 1 {
		page = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query.Page = page
	if size > 0 {
		l.query.Limit = size
	}
	l.fetchLocked()
}

// Query returns the filters of the table
func (l *OccurrenceList) Query() OccurrenceQuery {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// Result returns the rows and total currently shown
func (l *OccurrenceList) Result() models.Page[models.GeneralOccurrence] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}

// Loading reports whether a request is in flight
func (l *OccurrenceList) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Wait blocks until no debounce is pending and no request is in flight
func (l *OccurrenceList) Wait() {
	l.idle.Wait()
}

// Follow reloads the table on every occurrence change reported by the live
// feed, until ctx is done
func (l *OccurrenceList) Follow(ctx context.Context) error {
	return l.c.Watch(ctx, func(models.LiveEvent) {
		l.Reload()
	})
}

// Close cancels pending work
func (l *OccurrenceList) Close() {
	l.mu.Lock()
	if l.timer != nil && l.timer.Stop() {
		l.idle.Done()
	}
	l.mu.Unlock()
	l.stopBase()
}

// fetchLocked supersedes any request in flight. l.mu must be held.
func (l *OccurrenceList) fetchLocked() {
	if l.cancel != nil {
		l.cancel()
	}
	l.generation++
	gen := l.generation
	ctx, cancel := context.WithCancel(l.base)
	l.cancel = cancel
	l.loading = true
	q := l.query

	l.idle.Add(1)
	go func() {
		defer l.idle.Done()
		defer cancel()
		page, err := l.c.Occurrences.List(ctx, q)

		l.mu.Lock()
		if gen != l.generation {
			l.mu.Unlock()
			return
		}
		l.loading = false
		if err != nil {
			l.c.log.Warnw("failed to load occurrences", "page", q.Page, "search", q.Search, "error", err)
			page = &models.Page[models.GeneralOccurrence]{Data: []models.GeneralOccurrence{}, Page: q.Page, Limit: q.Limit}
		}
		if page.Data == nil {
			page.Data = []models.GeneralOccurrence{}
		}
		l.result = *page
		onChange := l.onChange
		l.mu.Unlock()

		if onChange == nil {
			return
		}
		l.deliver.Lock()
		defer l.deliver.Unlock()
		l.mu.Lock()
		current := gen == l.generation
		l.mu.Unlock()
		if current {
			onChange(*page)
		}
	}()
}
