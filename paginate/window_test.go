package paginate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeWindow(t *testing.T) {
	tests := []struct {
		name            string
		itemCount       int
		itemHeight      int
		containerHeight int
		overscan        int
		scrollTop       int
		want            Window
	}{
		{
			name:      "mid-list scroll",
			itemCount: 1000, itemHeight: 50, containerHeight: 500,
			overscan: 2, scrollTop: 1000,
			want: Window{Start: 18, End: 32, TotalHeight: 50000, OffsetY: 900},
		},
		{
			name:      "top of list",
			itemCount: 1000, itemHeight: 50, containerHeight: 500,
			overscan: 2, scrollTop: 0,
			want: Window{Start: 0, End: 14, TotalHeight: 50000, OffsetY: 0},
		},
		{
			name:      "bottom of list clamps end",
			itemCount: 100, itemHeight: 50, containerHeight: 500,
			overscan: 2, scrollTop: 4750,
			want: Window{Start: 93, End: 100, TotalHeight: 5000, OffsetY: 4650},
		},
		{
			name:      "negative scroll clamps to zero",
			itemCount: 100, itemHeight: 50, containerHeight: 500,
			overscan: 2, scrollTop: -300,
			want: Window{Start: 0, End: 14, TotalHeight: 5000, OffsetY: 0},
		},
		{
			name:      "window larger than list",
			itemCount: 5, itemHeight: 50, containerHeight: 500,
			overscan: 2, scrollTop: 0,
			want: Window{Start: 0, End: 5, TotalHeight: 250, OffsetY: 0},
		},
		{
			name:      "empty list",
			itemCount: 0, itemHeight: 50, containerHeight: 500,
			overscan: 2, scrollTop: 1000,
			want: Window{Start: 0, End: 0, TotalHeight: 0, OffsetY: 0},
		},
		{
			name:      "container not a multiple of item height rounds up",
			itemCount: 1000, itemHeight: 48, containerHeight: 500,
			overscan: 0, scrollTop: 0,
			want: Window{Start: 0, End: 11, TotalHeight: 48000, OffsetY: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeWindow(tt.itemCount, tt.itemHeight, tt.containerHeight, tt.overscan, tt.scrollTop)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeWindowGeometryPanics(t *testing.T) {
	assert.Panics(t, func() { ComputeWindow(10, 0, 500, 2, 0) })
	assert.Panics(t, func() { ComputeWindow(10, 50, 0, 2, 0) })
	assert.Panics(t, func() { ComputeWindow(10, 50, 500, -1, 0) })
}

func TestVirtualizer(t *testing.T) {
	items := make([]int, 1000)
	for i := range items {
		items[i] = i
	}
	v := NewVirtualizer(items, 50, 500, WithOverscan(2))

	v.OnScroll(1000)
	w := v.Window()
	assert.Equal(t, 18, w.Start)
	assert.Equal(t, 32, w.End)
	assert.Equal(t, 900, w.OffsetY)

	visible := v.VisibleItems()
	require.Len(t, visible, 14)
	assert.Equal(t, 18, visible[0])
	assert.Equal(t, 31, visible[13])

	v.SetItems(items[:20])
	w = v.Window()
	assert.Equal(t, 20, w.End)
	assert.Equal(t, 1000, w.TotalHeight)
}

func TestVirtualizerDefaults(t *testing.T) {
	v := NewVirtualizer(make([]int, 100), 50, 500)
	w := v.Window()
	assert.Equal(t, 0, w.Start)
	// 10 visible rows plus DefaultOverscan below (none above at the top).
	assert.Equal(t, 10+2*DefaultOverscan, w.End)
	assert.Panics(t, func() { NewVirtualizer(make([]int, 10), 0, 500) })
}
