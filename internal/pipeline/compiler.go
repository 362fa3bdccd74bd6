package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/hexosearch/internal/cache"
	"github.com/Aman-CERP/hexosearch/internal/engine"
	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

// Compiled is the output of Compile.
type Compiled struct {
	// Actions preserves input order, minus omitted articles.
	Actions []engine.Action

	// Omitted lists articles skipped by the exclude list.
	Omitted []*cache.Article

	// ByDocID maps each action ID back to its source article.
	ByDocID map[string]*cache.Article

	// Duplicates lists articles dropped because an earlier article already
	// produced the same document ID. The first article keeps the ID.
	Duplicates []Duplicate
}

// Duplicate is an article whose document ID collided with Kept's.
type Duplicate struct {
	ID      string
	Article *cache.Article
	Kept    *cache.Article
}

// Compile turns joined articles into index actions for rc's index and type.
func Compile(articles []*cache.Article, rc *RunContext) (*Compiled, error) {
	out := &Compiled{
		Actions: make([]engine.Action, 0, len(articles)),
		ByDocID: make(map[string]*cache.Article, len(articles)),
	}

	for _, a := range articles {
		path := BuildPath(a, rc.CategoryMap)
		if rc.Excludes.Contains(path) {
			out.Omitted = append(out.Omitted, a)
			slog.Debug("article_omitted",
				slog.String("id", a.ID),
				slog.String("path", path))
			continue
		}

		action, err := compileOne(a, path, rc)
		if err != nil {
			return nil, err
		}
		if kept, ok := out.ByDocID[action.ID]; ok {
			out.Duplicates = append(out.Duplicates, Duplicate{ID: action.ID, Article: a, Kept: kept})
			slog.Warn("duplicate_document_id",
				slog.String("doc_id", action.ID),
				slog.String("id", a.ID),
				slog.String("kept_id", kept.ID))
			continue
		}
		out.Actions = append(out.Actions, action)
		out.ByDocID[action.ID] = a
	}

	slog.Info("actions_compiled",
		slog.Int("actions", len(out.Actions)),
		slog.Int("omitted", len(out.Omitted)),
		slog.Int("duplicates", len(out.Duplicates)))

	return out, nil
}

func compileOne(a *cache.Article, path string, rc *RunContext) (engine.Action, error) {
	date, err := cache.ContentEpoch(a.Date)
	if err != nil {
		return engine.Action{}, invalidDate(a, "date", a.Date)
	}
	updated, err := cache.ContentEpoch(a.Updated)
	if err != nil {
		return engine.Action{}, invalidDate(a, "updated", a.Updated)
	}

	content := Sanitize(a.Content)
	return engine.Action{
		Index:   rc.Index,
		DocType: rc.DocType,
		Op:      engine.OpIndex,
		ID:      DocumentID(path),
		Source: engine.Source{
			Title:      a.Title,
			Date:       date,
			Updated:    updated,
			Content:    content,
			Path:       path,
			Excerpt:    Excerpt(a.Excerpt, content),
			Categories: a.Categories,
			Tags:       a.Tags,
		},
	}, nil
}

func invalidDate(a *cache.Article, field, value string) error {
	return synerr.CorruptCache(fmt.Sprintf("%s %s has an invalid %s time", a.Kind, a.ID, field)).
		WithDetail("article_id", a.ID).
		WithDetail(field, value)
}
