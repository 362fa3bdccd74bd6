package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

// Bleve indexes actions into a local bleve index, one index per name.
// It stands in for a cluster in tests and on machines without one.
type Bleve struct {
	mu     sync.RWMutex
	index  bleve.Index
	name   string
	path   string
	closed bool
}

// Verify interface implementation
var _ Engine = (*Bleve)(nil)

// NewBleve opens or creates the index <dir>/<name>.bleve.
// If dir is empty, creates an in-memory index.
func NewBleve(dir, name string) (*Bleve, error) {
	if name == "" {
		return nil, synerr.New(synerr.ErrCodeInvalidInput, "bleve backend requires an index name", nil)
	}

	indexMapping := createIndexMapping()

	var (
		idx  bleve.Index
		err  error
		path string
	)
	if dir == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, synerr.New(synerr.ErrCodeFilePermission,
				fmt.Sprintf("failed to create directory %s", dir), err)
		}
		path = BleveIndexPath(dir, name)

		if validErr := validateIndexIntegrity(path); validErr != nil {
			return nil, synerr.EngineError(synerr.ErrCodeEngineUnavailable,
				fmt.Sprintf("bleve index at %s is corrupted", path), validErr).
				WithDetail("path", path).
				WithSuggestion("Remove the index directory and the watermark file, then run a full sync")
		}

		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, synerr.EngineError(synerr.ErrCodeEngineUnavailable,
			"failed to create/open bleve index", err).WithDetail("path", path)
	}

	slog.Debug("bleve_index_opened",
		slog.String("index", name),
		slog.String("path", path))

	return &Bleve{index: idx, name: name, path: path}, nil
}

// BleveIndexPath returns where the index name lives under dir.
func BleveIndexPath(dir, name string) string {
	return filepath.Join(dir, name+".bleve")
}

// BleveIndexExists reports whether the on-disk index name exists under dir.
func BleveIndexExists(dir, name string) bool {
	info, err := os.Stat(BleveIndexPath(dir, name))
	return err == nil && info.IsDir()
}

// createIndexMapping maps article fields: full text for prose, keyword for
// paths and taxonomy, numeric for epoch dates.
func createIndexMapping() *mapping.IndexMappingImpl {
	text := bleve.NewTextFieldMapping()
	keyword := bleve.NewKeywordFieldMapping()
	numeric := bleve.NewNumericFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("content", text)
	doc.AddFieldMappingsAt("excerpt", text)
	doc.AddFieldMappingsAt("path", keyword)
	doc.AddFieldMappingsAt("categories", keyword)
	doc.AddFieldMappingsAt("tags", keyword)
	doc.AddFieldMappingsAt("date", numeric)
	doc.AddFieldMappingsAt("updated", numeric)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = doc
	return indexMapping
}

// validateIndexIntegrity checks index_meta.json before opening.
// A missing directory is valid: the index will be created.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	data, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return errors.New("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	if len(data) == 0 {
		return errors.New("index_meta.json is empty")
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// Name implements Engine.
func (b *Bleve) Name() string {
	return BackendBleve
}

// Ping reports whether the index is open.
func (b *Bleve) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return synerr.EngineError(synerr.ErrCodeEngineTimeout, "bleve ping cancelled", err)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return synerr.EngineError(synerr.ErrCodeEngineUnavailable, "bleve index is closed", nil)
	}
	return nil
}

// Bulk indexes all actions in one bleve batch. Actions addressed to another
// index fail individually; a failed batch write fails the whole call.
func (b *Bleve) Bulk(ctx context.Context, actions []Action) (*BulkResponse, error) {
	if len(actions) == 0 {
		return &BulkResponse{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, synerr.EngineError(synerr.ErrCodeEngineTimeout, "bulk request cancelled", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, synerr.EngineError(synerr.ErrCodeEngineUnavailable, "bleve index is closed", nil)
	}

	start := time.Now()
	resp := &BulkResponse{}
	batch := b.index.NewBatch()

	for _, a := range actions {
		if a.Index != b.name {
			resp.Errors = append(resp.Errors, ItemError{
				DocID:  a.ID,
				Status: 404,
				Type:   "index_not_found_exception",
				Reason: fmt.Sprintf("no such index [%s]", a.Index),
			})
			continue
		}
		if a.Op != "" && a.Op != OpIndex {
			resp.Errors = append(resp.Errors, ItemError{
				DocID:  a.ID,
				Status: 400,
				Type:   "illegal_argument_exception",
				Reason: fmt.Sprintf("unsupported operation [%s]", a.Op),
			})
			continue
		}
		if err := batch.Index(a.ID, toDocument(a)); err != nil {
			resp.Errors = append(resp.Errors, ItemError{
				DocID:    a.ID,
				Status:   400,
				Type:     "mapper_parsing_exception",
				Reason:   "failed to parse document",
				CausedBy: err.Error(),
			})
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			return nil, synerr.EngineError(synerr.ErrCodeBulkRejected, "failed to write bleve batch", err)
		}
	}
	resp.Took = time.Since(start)

	slog.Debug("bleve_bulk_done",
		slog.String("index", b.name),
		slog.Int("actions", len(actions)),
		slog.Int("failed", len(resp.Errors)))

	return resp, nil
}

func toDocument(a Action) map[string]any {
	doc := map[string]any{
		"title":   a.Source.Title,
		"content": a.Source.Content,
		"excerpt": a.Source.Excerpt,
		"path":    a.Source.Path,
		"date":    float64(a.Source.Date),
		"updated": float64(a.Source.Updated),
	}
	if len(a.Source.Categories) > 0 {
		doc["categories"] = a.Source.Categories
	}
	if len(a.Source.Tags) > 0 {
		doc["tags"] = a.Source.Tags
	}
	return doc
}

// Count returns the number of indexed documents.
func (b *Bleve) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, synerr.EngineError(synerr.ErrCodeEngineUnavailable, "bleve index is closed", nil)
	}
	return b.index.DocCount()
}

// Contains reports whether a document with id is indexed.
func (b *Bleve) Contains(ctx context.Context, id string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false, synerr.EngineError(synerr.ErrCodeEngineUnavailable, "bleve index is closed", nil)
	}

	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return false, fmt.Errorf("search failed: %w", err)
	}
	return res.Total > 0, nil
}

// Search runs a match query over the text fields and returns matching IDs.
func (b *Bleve) Search(ctx context.Context, text string, limit int) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, synerr.EngineError(synerr.ErrCodeEngineUnavailable, "bleve index is closed", nil)
	}
	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(text), limit, 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Close implements Engine.
func (b *Bleve) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
