// Package engine abstracts the search engine that receives bulk index actions.
//
// Two backends exist: a remote Elasticsearch cluster and a local bleve index.
// Both accept one batch per call and report per-document failures separately
// from whole-batch (transport) failures.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// OpIndex is the only bulk operation this tool emits: create-or-replace.
const OpIndex = "index"

// Backend names accepted by New.
const (
	BackendElastic = "elasticsearch"
	BackendBleve   = "bleve"
)

// Source is the JSON document body of one action.
// Categories and Tags are omitted entirely when the article has none.
type Source struct {
	Title      string   `json:"title"`
	Date       int64    `json:"date"`
	Updated    int64    `json:"updated"`
	Content    string   `json:"content"`
	Path       string   `json:"path"`
	Excerpt    string   `json:"excerpt"`
	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// Action is one bulk submission unit.
type Action struct {
	Index   string
	DocType string
	Op      string
	ID      string
	Source  Source
}

// ItemError describes one document the engine refused.
type ItemError struct {
	DocID    string
	Status   int
	Type     string
	Reason   string
	CausedBy string
}

// BulkResponse is the outcome of a batch the engine accepted as a whole.
// Errors lists documents that failed individually.
type BulkResponse struct {
	Took   time.Duration
	Errors []ItemError
}

// Engine is the search engine contract used by the bulk indexer.
type Engine interface {
	// Name identifies the backend in logs and reports.
	Name() string

	// Ping checks liveness. Any error means the run must abort.
	Ping(ctx context.Context) error

	// Bulk submits all actions as one batch with immediate visibility.
	// A returned error means nothing can be assumed indexed.
	Bulk(ctx context.Context, actions []Action) (*BulkResponse, error)

	// Close releases the backend.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend  string
	Host     string
	Port     int
	User     string
	Password string
	Timeout  time.Duration

	// BleveDir is where local indexes live; empty means in-memory.
	BleveDir string
	// Index names the bleve index (one directory per index).
	Index string
}

// New constructs the backend named by cfg.Backend.
func New(cfg Config) (Engine, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendElastic, "es":
		return NewElastic(ElasticConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			Timeout:  cfg.Timeout,
		})
	case BackendBleve:
		return NewBleve(cfg.BleveDir, cfg.Index)
	default:
		return nil, fmt.Errorf("unknown engine backend %q (use elasticsearch or bleve)", cfg.Backend)
	}
}
