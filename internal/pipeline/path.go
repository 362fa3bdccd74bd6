package pipeline

import (
	"strings"

	"github.com/Aman-CERP/hexosearch/internal/cache"
)

// BuildPath returns the site-relative URL path of an article.
// Pages use their explicit path. Posts become /<cat>/.../<slug>.html with
// each category name replaced by its alias when one exists.
func BuildPath(a *cache.Article, aliases map[string]string) string {
	if a.Path != "" {
		return "/" + a.Path
	}

	var b strings.Builder
	for _, name := range a.Categories {
		b.WriteByte('/')
		if alias, ok := aliases[name]; ok && alias != "" {
			b.WriteString(alias)
		} else {
			b.WriteString(name)
		}
	}
	b.WriteByte('/')
	b.WriteString(a.Slug)
	b.WriteString(".html")
	return b.String()
}

// DocumentID derives the stable engine ID from a path:
// "/t/hello.html" becomes "t.hello".
func DocumentID(path string) string {
	id := path
	for {
		trimmed := strings.Trim(strings.TrimSuffix(id, ".html"), "/")
		if trimmed == id {
			break
		}
		id = trimmed
	}
	return strings.ReplaceAll(id, "/", ".")
}
