package pipeline

import (
	"regexp"
	"strings"
)

// markup matches an HTML comment (possibly spanning lines) or any tag.
var markup = regexp.MustCompile(`(?s:<!--.*?-->)|<[^>]*>`)

// Sanitize strips HTML comments and tags from content.
func Sanitize(content string) string {
	return markup.ReplaceAllString(content, "")
}

// Excerpt returns the article's own excerpt when non-empty, otherwise the
// first two lines of the sanitized content.
func Excerpt(excerpt, sanitized string) string {
	if excerpt != "" {
		return excerpt
	}
	lines := strings.SplitN(sanitized, "\n", 3)
	if len(lines) > 2 {
		lines = lines[:2]
	}
	return strings.Join(lines, "\n")
}
