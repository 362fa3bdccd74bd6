package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/hexosearch/internal/cache"
	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
	"github.com/Aman-CERP/hexosearch/internal/state"
)

// updatedEpoch is the shifted epoch of stamp.
const (
	stamp        = "2016-07-23T02:00:00.000Z"
	updatedEpoch = state.Watermark(1469239200 + 8*3600)
)

func post(id, title string, published cache.Flag) *cache.Article {
	return &cache.Article{
		ID: id, Kind: cache.KindPost, Title: title, Content: "body",
		Date: stamp, Updated: stamp, Slug: id, Published: published,
	}
}

func page(id, title, path string) *cache.Article {
	return &cache.Article{
		ID: id, Kind: cache.KindPage, Title: title, Content: "body",
		Date: stamp, Updated: stamp, Path: path,
	}
}

var (
	published   = cache.Flag{Set: true, Value: true}
	unpublished = cache.Flag{Set: true, Value: false}
)

func titles(articles []*cache.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Title)
	}
	return out
}

func TestSelectChanged_UnpublishedNeverSelected(t *testing.T) {
	for _, wm := range []state.Watermark{0, updatedEpoch, updatedEpoch + 1} {
		got, err := SelectChanged([]*cache.Article{post("p1", "Draft", unpublished)}, nil, wm)

		require.NoError(t, err)
		assert.Empty(t, got, "watermark %d", wm)
	}
}

func TestSelectChanged_BoundaryIsInclusive(t *testing.T) {
	tests := []struct {
		name      string
		watermark state.Watermark
		want      int
	}{
		{"below", updatedEpoch - 1, 1},
		{"equal", updatedEpoch, 1},
		{"above", updatedEpoch + 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectChanged([]*cache.Article{post("p1", "Hello", published)}, nil, tt.watermark)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestSelectChanged_AbsentFlagIsPublished(t *testing.T) {
	got, err := SelectChanged([]*cache.Article{post("p1", "Legacy", cache.Flag{})}, nil, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"Legacy"}, titles(got))
}

func TestSelectChanged_PagesIgnorePublishFlag(t *testing.T) {
	p := page("g1", "About", "about/index.html")
	p.Published = unpublished

	got, err := SelectChanged(nil, []*cache.Article{p}, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"About"}, titles(got))
}

func TestSelectChanged_PostsThenPagesInCacheOrder(t *testing.T) {
	// Given: interleaved eligibility
	posts := []*cache.Article{
		post("p1", "B post", published),
		post("p2", "Hidden", unpublished),
		post("p3", "A post", published),
	}
	pages := []*cache.Article{
		page("g1", "Z page", "z.html"),
		page("g2", "Y page", "y.html"),
	}

	// When: selecting everything
	got, err := SelectChanged(posts, pages, 0)

	// Then: posts first, then pages, cache order kept
	require.NoError(t, err)
	assert.Equal(t, []string{"B post", "A post", "Z page", "Y page"}, titles(got))
}

func TestSelectChanged_InvalidUpdatedIsCorruption(t *testing.T) {
	a := post("p1", "Broken", published)
	a.Updated = "yesterday"

	_, err := SelectChanged([]*cache.Article{a}, nil, 0)

	require.Error(t, err)
	assert.Equal(t, synerr.ErrCodeCacheCorrupt, synerr.GetCode(err))
}

func TestSelectChanged_MissingTitleIsCorruption(t *testing.T) {
	a := post("p1", "", published)

	_, err := SelectChanged([]*cache.Article{a}, nil, 0)

	require.Error(t, err)
	assert.Equal(t, synerr.ErrCodeCacheCorrupt, synerr.GetCode(err))
	assert.Contains(t, err.Error(), "title")
}

func TestSelectChanged_SkippedArticlesAreNotValidated(t *testing.T) {
	// Given: an old post missing its content
	a := post("p1", "Old", published)
	a.Content = ""

	// When: the watermark is past it
	got, err := SelectChanged([]*cache.Article{a}, nil, updatedEpoch+1)

	// Then: it is skipped, not reported
	require.NoError(t, err)
	assert.Empty(t, got)
}
