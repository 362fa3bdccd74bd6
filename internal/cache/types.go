// Package cache loads the Hexo content cache (db.json) into typed records.
package cache

import (
	"bytes"
	"fmt"
	"strconv"

	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

// Kind distinguishes posts from pages.
type Kind string

const (
	KindPost Kind = "post"
	KindPage Kind = "page"
)

// Flag is Hexo's "published" marker. The cache stores it as a bool, older
// exports as 0/1, and some records omit it entirely.
type Flag struct {
	Set   bool
	Value bool
}

// UnmarshalJSON accepts true/false, any number (non-zero is true) and null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null":
		*f = Flag{}
		return nil
	case "true":
		*f = Flag{Set: true, Value: true}
		return nil
	case "false":
		*f = Flag{Set: true, Value: false}
		return nil
	}

	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("published flag must be a bool or number, got %s", data)
	}
	*f = Flag{Set: true, Value: n != 0}
	return nil
}

// Excluded reports whether the flag explicitly marks the record unpublished.
// An absent flag does not exclude.
func (f Flag) Excluded() bool {
	return f.Set && !f.Value
}

// Article is a Post or Page record. Posts carry Slug and Published, pages
// carry Path. Categories and Tags stay nil until the joiner attaches them,
// and remain nil when the article has no associations.
type Article struct {
	ID        string `json:"_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Excerpt   string `json:"excerpt"`
	Published Flag   `json:"published"`
	Date      string `json:"date"`
	Updated   string `json:"updated"`
	Slug      string `json:"slug"`
	Path      string `json:"path"`

	Kind       Kind     `json:"-"`
	Categories []string `json:"-"`
	Tags       []string `json:"-"`
}

// Validate checks the fields every indexed article must carry.
// A missing field means the cache is corrupt, not that the article is a draft.
func (a *Article) Validate() error {
	missing := ""
	switch {
	case a.Title == "":
		missing = "title"
	case a.Content == "":
		missing = "content"
	case a.Date == "":
		missing = "date"
	case a.Updated == "":
		missing = "updated"
	case a.Path == "" && a.Slug == "":
		missing = "slug/path"
	}
	if missing != "" {
		return synerr.CorruptCache(fmt.Sprintf("%s %s has no %s", a.Kind, a.ID, missing)).
			WithDetail("article_id", a.ID)
	}
	return nil
}

// Category maps a category ID to its display name.
type Category struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

// Tag maps a tag ID to its display name.
type Tag struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// PostCategory links an article to a category.
type PostCategory struct {
	ID         string `json:"_id"`
	PostID     string `json:"post_id"`
	CategoryID string `json:"category_id"`
}

// PostTag links an article to a tag.
type PostTag struct {
	ID     string `json:"_id"`
	PostID string `json:"post_id"`
	TagID  string `json:"tag_id"`
}

// Models is the "models" object of db.json.
type Models struct {
	Post         []*Article     `json:"Post"`
	Page         []*Article     `json:"Page"`
	Category     []Category     `json:"Category"`
	Tag          []Tag          `json:"Tag"`
	PostCategory []PostCategory `json:"PostCategory"`
	PostTag      []PostTag      `json:"PostTag"`
}

// Cache is one loaded snapshot of db.json.
type Cache struct {
	Models Models `json:"models"`
}

// Posts returns the post records in cache order.
func (c *Cache) Posts() []*Article { return c.Models.Post }

// Pages returns the page records in cache order.
func (c *Cache) Pages() []*Article { return c.Models.Page }

// CategoryNames returns the category ID to name lookup.
func (c *Cache) CategoryNames() map[string]string {
	names := make(map[string]string, len(c.Models.Category))
	for _, cat := range c.Models.Category {
		names[cat.ID] = cat.Name
	}
	return names
}

// TagNames returns the tag ID to name lookup.
func (c *Cache) TagNames() map[string]string {
	names := make(map[string]string, len(c.Models.Tag))
	for _, tag := range c.Models.Tag {
		names[tag.ID] = tag.Name
	}
	return names
}
