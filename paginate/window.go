package paginate

import "sync"

// Window is the visible slice of a virtually-scrolled list: the half-open
// index range [Start, End), the full scroll height, and the pixel offset
// at which the first visible item renders.
type Window struct {
	Start       int
	End         int
	TotalHeight int
	OffsetY     int
}

// ComputeWindow returns the window for a scroll position. Geometry is in
// pixels with fixed-height items; overscan rows are included on both sides
// of the viewport. A non-positive itemHeight or containerHeight, or a
// negative overscan, is a configuration error and panics. Negative
// scrollTop clamps to 0.
func ComputeWindow(itemCount, itemHeight, containerHeight, overscan, scrollTop int) Window {
	if itemHeight < 1 {
		panic("paginate: item height must be at least 1")
	}
	if containerHeight < 1 {
		panic("paginate: container height must be at least 1")
	}
	if overscan < 0 {
		panic("paginate: overscan must not be negative")
	}
	if scrollTop < 0 {
		scrollTop = 0
	}
	start := scrollTop/itemHeight - overscan
	if start < 0 {
		start = 0
	}
	visible := (containerHeight+itemHeight-1)/itemHeight + 2*overscan
	end := start + visible
	if end > itemCount {
		end = itemCount
	}
	if start > end {
		start = end
	}
	return Window{
		Start:       start,
		End:         end,
		TotalHeight: itemCount * itemHeight,
		OffsetY:     start * itemHeight,
	}
}

// DefaultOverscan is the number of extra rows rendered on each side of the
// viewport when WithOverscan is omitted.
const DefaultOverscan = 3

// Virtualizer tracks scroll position over a list and exposes the currently
// visible slice. No I/O, no timers.
type Virtualizer[T any] struct {
	mu              sync.Mutex
	items           []T
	itemHeight      int
	containerHeight int
	overscan        int
	scrollTop       int
}

// VirtualOption configures a Virtualizer.
type VirtualOption func(*virtualConfig)

type virtualConfig struct {
	overscan int
}

// WithOverscan sets the number of off-screen rows kept rendered on each
// side of the viewport. Defaults to DefaultOverscan.
func WithOverscan(n int) VirtualOption {
	return func(c *virtualConfig) { c.overscan = n }
}

// NewVirtualizer returns a Virtualizer over items. Geometry arguments
// follow the same rules as ComputeWindow.
func NewVirtualizer[T any](items []T, itemHeight, containerHeight int, opts ...VirtualOption) *Virtualizer[T] {
	cfg := virtualConfig{overscan: DefaultOverscan}
	for _, opt := range opts {
		opt(&cfg)
	}
	// Validate geometry eagerly rather than on first scroll.
	ComputeWindow(0, itemHeight, containerHeight, cfg.overscan, 0)
	return &Virtualizer[T]{
		items:           items,
		itemHeight:      itemHeight,
		containerHeight: containerHeight,
		overscan:        cfg.overscan,
	}
}

// OnScroll records a new scroll position.
func (v *Virtualizer[T]) OnScroll(scrollTop int) {
	if scrollTop < 0 {
		scrollTop = 0
	}
	v.mu.Lock()
	v.scrollTop = scrollTop
	v.mu.Unlock()
}

// SetItems replaces the underlying list.
func (v *Virtualizer[T]) SetItems(items []T) {
	v.mu.Lock()
	v.items = items
	v.mu.Unlock()
}

// Window returns the window for the current scroll position.
func (v *Virtualizer[T]) Window() Window {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ComputeWindow(len(v.items), v.itemHeight, v.containerHeight, v.overscan, v.scrollTop)
}

// VisibleItems returns the items inside the current window.
func (v *Virtualizer[T]) VisibleItems() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	w := ComputeWindow(len(v.items), v.itemHeight, v.containerHeight, v.overscan, v.scrollTop)
	return v.items[w.Start:w.End]
}
