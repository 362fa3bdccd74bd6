// Package pipeline implements one incremental sync run: select changed
// articles, join their metadata, compile index actions and submit them.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/hexosearch/internal/cache"
	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
	"github.com/Aman-CERP/hexosearch/internal/state"
)

// SelectChanged returns the articles to (re)index: published posts and all
// pages whose shifted update time is at or after the watermark. Posts come
// first, then pages, each in cache order.
func SelectChanged(posts, pages []*cache.Article, watermark state.Watermark) ([]*cache.Article, error) {
	selected := make([]*cache.Article, 0, len(posts)+len(pages))

	for _, group := range [][]*cache.Article{posts, pages} {
		for _, a := range group {
			ok, err := eligible(a, watermark)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if err := a.Validate(); err != nil {
				return nil, err
			}
			selected = append(selected, a)
		}
	}

	slog.Info("articles_selected",
		slog.Int("posts", len(posts)),
		slog.Int("pages", len(pages)),
		slog.Int("selected", len(selected)),
		slog.Int64("watermark", int64(watermark)))

	return selected, nil
}

func eligible(a *cache.Article, watermark state.Watermark) (bool, error) {
	if a.Kind == cache.KindPost && a.Published.Excluded() {
		return false, nil
	}
	updated, err := cache.ContentEpoch(a.Updated)
	if err != nil {
		return false, synerr.CorruptCache(fmt.Sprintf("%s %s has an invalid updated time", a.Kind, a.ID)).
			WithDetail("article_id", a.ID).
			WithDetail("updated", a.Updated)
	}
	return updated >= int64(watermark), nil
}
