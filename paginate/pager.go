// Package paginate slices lists into pages and virtual-scroll windows.
// Filtering, paging, and windowing are pure synchronous computations over
// in-memory state; the only timer involved is the search debounce.
package paginate

import (
	"strings"
	"sync"
	"time"

	"github.com/promptdeck/go-datakit/schedule"
)

// Field extracts one searchable string from an item. An item matches a
// query when any declared field contains it, case-insensitively.
type Field[T any] func(T) string

// DefaultSearchDelay is the debounce applied to SetSearch input.
const DefaultSearchDelay = 300 * time.Millisecond

// Pager pages a list, with debounced substring filtering. The current page
// is 1-based and always satisfies 1 <= page <= max(1, totalPages).
type Pager[T any] struct {
	mu          sync.Mutex
	items       []T
	filtered    []T
	fields      []Field[T]
	page        int
	pageSize    int
	rawSearch   string
	search      string
	clampToLast bool
	onChange    func()
	debounce    *schedule.Debouncer[string]
}

// Option configures a Pager.
type Option[T any] func(*pagerConfig[T])

type pagerConfig[T any] struct {
	fields      []Field[T]
	searchDelay time.Duration
	clampToLast bool
	onChange    func()
}

// WithSearchFields declares the fields filtering matches against. With no
// declared fields, search is a no-op and every item matches.
func WithSearchFields[T any](fields ...Field[T]) Option[T] {
	return func(c *pagerConfig[T]) { c.fields = fields }
}

// WithSearchDelay sets the search debounce. Defaults to
// DefaultSearchDelay. Non-positive values are a configuration error and
// panic.
func WithSearchDelay[T any](d time.Duration) Option[T] {
	return func(c *pagerConfig[T]) { c.searchDelay = d }
}

// WithClampToLast changes the shrink policy: when the filtered set shrinks
// below the current page, clamp to the last valid page instead of the
// default reset to page 1.
func WithClampToLast[T any]() Option[T] {
	return func(c *pagerConfig[T]) { c.clampToLast = true }
}

// WithOnChange registers a callback fired after any operation that may
// change the visible page, including a search debounce settling. It runs
// outside the pager's lock.
func WithOnChange[T any](fn func()) Option[T] {
	return func(c *pagerConfig[T]) { c.onChange = fn }
}

// New returns a Pager over items. A pageSize below 1 is a configuration
// error and panics.
func New[T any](items []T, pageSize int, opts ...Option[T]) *Pager[T] {
	if pageSize < 1 {
		panic("paginate: page size must be at least 1")
	}
	cfg := pagerConfig[T]{searchDelay: DefaultSearchDelay}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.searchDelay <= 0 {
		panic("paginate: search delay must be positive")
	}
	p := &Pager[T]{
		items:       items,
		filtered:    items,
		fields:      cfg.fields,
		page:        1,
		pageSize:    pageSize,
		clampToLast: cfg.clampToLast,
		onChange:    cfg.onChange,
	}
	p.debounce = schedule.NewDebouncer(cfg.searchDelay, p.applySearch)
	return p
}

// Page returns the items of the current page.
func (p *Pager[T]) Page() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	start := (p.page - 1) * p.pageSize
	if start >= len(p.filtered) {
		return nil
	}
	end := start + p.pageSize
	if end > len(p.filtered) {
		end = len(p.filtered)
	}
	return p.filtered[start:end]
}

// CurrentPage returns the 1-based page number.
func (p *Pager[T]) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// TotalPages returns the number of pages over the filtered set; zero when
// nothing matches.
func (p *Pager[T]) TotalPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalPagesLocked()
}

// TotalItems returns the filtered item count.
func (p *Pager[T]) TotalItems() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.filtered)
}

// PageSize returns the current page size.
func (p *Pager[T]) PageSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageSize
}

// Search returns the settled (debounced) search text.
func (p *Pager[T]) Search() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.search
}

// RawSearch returns the most recently submitted search text, which may not
// have settled yet.
func (p *Pager[T]) RawSearch() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rawSearch
}

// SetSearch records text and re-filters once input has quiesced for the
// configured delay, so keystroke-rate input triggers at most one re-filter
// per quiet period.
func (p *Pager[T]) SetSearch(text string) {
	p.mu.Lock()
	p.rawSearch = text
	p.mu.Unlock()
	p.debounce.Call(text)
}

// FlushSearch applies any pending search text immediately.
func (p *Pager[T]) FlushSearch() {
	p.debounce.Flush()
}

// SetPage moves to page n, clamped into [1, max(1, totalPages)].
func (p *Pager[T]) SetPage(n int) {
	p.mu.Lock()
	max := p.totalPagesLocked()
	if max < 1 {
		max = 1
	}
	if n < 1 {
		n = 1
	}
	if n > max {
		n = max
	}
	changed := n != p.page
	p.page = n
	p.mu.Unlock()
	if changed {
		p.notify()
	}
}

// SetPageSize changes the page density, repositioning so the page still
// contains the item that led the previous page. Sizes below 1 are raised
// to 1.
func (p *Pager[T]) SetPageSize(n int) {
	if n < 1 {
		n = 1
	}
	p.mu.Lock()
	if n == p.pageSize {
		p.mu.Unlock()
		return
	}
	firstVisible := (p.page - 1) * p.pageSize
	p.pageSize = n
	p.page = firstVisible/n + 1
	p.clampPageLocked()
	p.mu.Unlock()
	p.notify()
}

// SetItems replaces the underlying list and re-filters with the current
// search text. The shrink policy applies.
func (p *Pager[T]) SetItems(items []T) {
	p.mu.Lock()
	p.items = items
	p.refilterLocked()
	p.mu.Unlock()
	p.notify()
}

// Close cancels any pending search debounce.
func (p *Pager[T]) Close() {
	p.debounce.Stop()
}

// applySearch runs when the debounce settles.
func (p *Pager[T]) applySearch(text string) {
	p.mu.Lock()
	p.search = text
	p.refilterLocked()
	p.mu.Unlock()
	p.notify()
}

// refilterLocked recomputes the filtered set and applies the shrink
// policy: a result set too small for the current page resets to page 1
// (most likely a fresh query the user wants from the top), or clamps to
// the last page when WithClampToLast was chosen.
func (p *Pager[T]) refilterLocked() {
	p.filtered = p.matchLocked()
	total := p.totalPagesLocked()
	if p.page > total {
		if p.clampToLast && total > 0 {
			p.page = total
		} else {
			p.page = 1
		}
	}
}

func (p *Pager[T]) matchLocked() []T {
	query := strings.ToLower(strings.TrimSpace(p.search))
	if query == "" || len(p.fields) == 0 {
		return p.items
	}
	matched := make([]T, 0, len(p.items))
	for _, item := range p.items {
		for _, field := range p.fields {
			if strings.Contains(strings.ToLower(field(item)), query) {
				matched = append(matched, item)
				break
			}
		}
	}
	return matched
}

func (p *Pager[T]) totalPagesLocked() int {
	return (len(p.filtered) + p.pageSize - 1) / p.pageSize
}

func (p *Pager[T]) clampPageLocked() {
	max := p.totalPagesLocked()
	if max < 1 {
		max = 1
	}
	if p.page > max {
		p.page = max
	}
	if p.page < 1 {
		p.page = 1
	}
}

func (p *Pager[T]) notify() {
	if p.onChange != nil {
		p.onChange()
	}
}
