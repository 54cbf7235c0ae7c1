package paginate

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prompt struct {
	Title string
	Body  string
	Tags  []string
}

func makePrompts(n int) []prompt {
	items := make([]prompt, n)
	for i := range items {
		items[i] = prompt{
			Title: fmt.Sprintf("Prompt %d", i+1),
			Body:  fmt.Sprintf("body text %d", i+1),
			Tags:  []string{"general"},
		}
	}
	return items
}

func promptFields() []Field[prompt] {
	return []Field[prompt]{
		func(p prompt) string { return p.Title },
		func(p prompt) string { return p.Body },
		func(p prompt) string { return strings.Join(p.Tags, " ") },
	}
}

func TestPageSlicing(t *testing.T) {
	p := New(makePrompts(25), 10)
	defer p.Close()
	assert.Equal(t, 1, p.CurrentPage())
	assert.Equal(t, 3, p.TotalPages())
	assert.Equal(t, 25, p.TotalItems())
	assert.Len(t, p.Page(), 10)
	assert.Equal(t, "Prompt 1", p.Page()[0].Title)

	p.SetPage(3)
	require.Len(t, p.Page(), 5)
	assert.Equal(t, "Prompt 21", p.Page()[0].Title)
}

func TestSetPageClamps(t *testing.T) {
	p := New(makePrompts(25), 10)
	defer p.Close()
	p.SetPage(99)
	assert.Equal(t, 3, p.CurrentPage())
	p.SetPage(-5)
	assert.Equal(t, 1, p.CurrentPage())
}

func TestEmptyList(t *testing.T) {
	p := New(nil, 10, WithSearchFields(promptFields()...))
	defer p.Close()
	assert.Equal(t, 0, p.TotalPages())
	assert.Equal(t, 1, p.CurrentPage())
	assert.Empty(t, p.Page())
	p.SetPage(5)
	assert.Equal(t, 1, p.CurrentPage())
}

func TestFilterMatchesAnyField(t *testing.T) {
	items := []prompt{
		{Title: "Summarize meeting", Body: "notes", Tags: []string{"work"}},
		{Title: "Translate", Body: "into French", Tags: []string{"language"}},
		{Title: "Recipe", Body: "dinner ideas", Tags: []string{"cooking", "french"}},
	}
	p := New(items, 10, WithSearchFields(promptFields()...), WithSearchDelay[prompt](10*time.Millisecond))
	defer p.Close()

	p.SetSearch("FRENCH")
	p.FlushSearch()
	require.Equal(t, 2, p.TotalItems(), "case-insensitive match over body and tags")
	assert.Equal(t, "Translate", p.Page()[0].Title)
	assert.Equal(t, "Recipe", p.Page()[1].Title)

	p.SetSearch("")
	p.FlushSearch()
	assert.Equal(t, 3, p.TotalItems())
}

func TestShrinkResetsToFirstPage(t *testing.T) {
	// 25 items on page 3; a filter matching 5 items resets to page 1.
	items := makePrompts(25)
	for i := 0; i < 5; i++ {
		items[i].Tags = []string{"favorite"}
	}
	p := New(items, 10, WithSearchFields(promptFields()...))
	defer p.Close()
	p.SetPage(3)

	p.SetSearch("favorite")
	p.FlushSearch()
	assert.Equal(t, 1, p.CurrentPage())
	assert.Equal(t, 5, p.TotalItems())
	assert.Len(t, p.Page(), 5)
}

func TestShrinkClampToLastOption(t *testing.T) {
	items := makePrompts(25)
	for i := 0; i < 15; i++ {
		items[i].Tags = []string{"favorite"}
	}
	p := New(items, 10, WithSearchFields(promptFields()...), WithClampToLast[prompt]())
	defer p.Close()
	p.SetPage(3)

	p.SetSearch("favorite")
	p.FlushSearch()
	assert.Equal(t, 2, p.CurrentPage(), "clamp policy lands on the last valid page")
}

func TestPageSizePreservesPosition(t *testing.T) {
	// On page 5 of 10/page (items 41-50), switching to 20/page must land
	// on the page containing item 41.
	p := New(makePrompts(100), 10)
	defer p.Close()
	p.SetPage(5)

	p.SetPageSize(20)
	assert.Equal(t, 3, p.CurrentPage())
	page := p.Page()
	require.Len(t, page, 20)
	assert.Equal(t, "Prompt 41", page[0].Title)
	assert.Equal(t, "Prompt 60", page[19].Title)
}

func TestPageSizeMinimumGuard(t *testing.T) {
	p := New(makePrompts(5), 10)
	defer p.Close()
	p.SetPageSize(0)
	assert.Equal(t, 1, p.PageSize())
	assert.Panics(t, func() { New(makePrompts(5), 0) })
	assert.Panics(t, func() { New(makePrompts(5), -1) })
}

func TestSearchDebounceSettling(t *testing.T) {
	items := makePrompts(10)
	var fieldCalls atomic.Int64
	counting := Field[prompt](func(p prompt) string {
		fieldCalls.Add(1)
		return p.Title
	})
	var changes atomic.Int64
	p := New(items, 10,
		WithSearchFields(counting),
		WithSearchDelay[prompt](60*time.Millisecond),
		WithOnChange[prompt](func() { changes.Add(1) }))
	defer p.Close()

	p.SetSearch("p")
	p.SetSearch("pr")
	p.SetSearch("prompt 1")
	assert.Equal(t, "prompt 1", p.RawSearch())
	assert.Equal(t, "", p.Search(), "filtering must wait for the debounce")

	assert.Eventually(t, func() bool {
		return changes.Load() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "prompt 1", p.Search())
	assert.Equal(t, int64(len(items)), fieldCalls.Load(),
		"exactly one filter evaluation for the whole burst")
	assert.Equal(t, 2, p.TotalItems()) // Prompt 1 and Prompt 10
}

func TestSetItemsRefilters(t *testing.T) {
	p := New(makePrompts(25), 10)
	defer p.Close()
	p.SetPage(3)
	p.SetItems(makePrompts(5))
	assert.Equal(t, 1, p.CurrentPage())
	assert.Equal(t, 5, p.TotalItems())
}

func TestNoDeclaredFieldsDisablesFiltering(t *testing.T) {
	p := New(makePrompts(10), 5, WithSearchDelay[prompt](10*time.Millisecond))
	defer p.Close()
	p.SetSearch("no such prompt")
	p.FlushSearch()
	assert.Equal(t, 10, p.TotalItems())
}
