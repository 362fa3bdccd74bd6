package pipeline

import (
	"fmt"

	"github.com/Aman-CERP/hexosearch/internal/cache"
	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

// JoinMetadata attaches category and tag names to the selected articles,
// in join-record order. Join records for other articles are ignored.
// Articles without associations keep nil Categories/Tags.
func JoinMetadata(articles []*cache.Article, c *cache.Cache) error {
	byID := make(map[string]*cache.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}

	categories := c.CategoryNames()
	for _, rec := range c.Models.PostCategory {
		a, ok := byID[rec.PostID]
		if !ok {
			continue
		}
		name, ok := categories[rec.CategoryID]
		if !ok {
			return unknownRef("category", rec.CategoryID, a)
		}
		a.Categories = append(a.Categories, name)
	}

	tags := c.TagNames()
	for _, rec := range c.Models.PostTag {
		a, ok := byID[rec.PostID]
		if !ok {
			continue
		}
		name, ok := tags[rec.TagID]
		if !ok {
			return unknownRef("tag", rec.TagID, a)
		}
		a.Tags = append(a.Tags, name)
	}

	return nil
}

func unknownRef(what, id string, a *cache.Article) error {
	return synerr.CorruptCache(fmt.Sprintf("%s %s references unknown %s %s", a.Kind, a.ID, what, id)).
		WithDetail("article_id", a.ID).
		WithDetail(what+"_id", id)
}
