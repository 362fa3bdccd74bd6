package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

// Load reads and parses the cache file at path.
// A missing file is an input-missing error; malformed JSON is ErrCodeCacheInvalid.
func Load(path string) (*Cache, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, synerr.NotFound("cache file", path).
				WithSuggestion("Run 'hexo generate' first or point --cache at db.json")
		}
		return nil, synerr.New(synerr.ErrCodeFilePermission, fmt.Sprintf("cannot open cache file %s", path), err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, synerr.New(synerr.ErrCodeFilePermission, fmt.Sprintf("cannot stat cache file %s", path), err)
	}
	if info.IsDir() {
		return nil, synerr.NotFound("cache file", path)
	}

	c, err := Parse(f)
	if err != nil {
		return nil, err
	}

	slog.Debug("cache_loaded",
		slog.String("path", path),
		slog.Int("posts", len(c.Models.Post)),
		slog.Int("pages", len(c.Models.Page)),
		slog.Int("categories", len(c.Models.Category)),
		slog.Int("tags", len(c.Models.Tag)))

	return c, nil
}

// Parse decodes a db.json snapshot and tags each record with its Kind.
func Parse(r io.Reader) (*Cache, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, synerr.New(synerr.ErrCodeCacheInvalid, "failed to read cache", err)
	}

	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, synerr.New(synerr.ErrCodeCacheInvalid, "failed to parse cache JSON", err)
	}

	for _, a := range c.Models.Post {
		if a != nil {
			a.Kind = KindPost
		}
	}
	for _, a := range c.Models.Page {
		if a != nil {
			a.Kind = KindPage
		}
	}
	c.Models.Post = compact(c.Models.Post)
	c.Models.Page = compact(c.Models.Page)

	return &c, nil
}

// compact drops null entries.
func compact(articles []*Article) []*Article {
	out := articles[:0]
	for _, a := range articles {
		if a != nil {
			out = append(out, a)
		}
	}
	return out
}
