package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v7"

	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

// Elasticsearch defaults.
const (
	DefaultHost    = "localhost"
	DefaultPort    = 9200
	DefaultTimeout = 60 * time.Second
)

// ElasticConfig configures the Elasticsearch backend.
type ElasticConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Timeout  time.Duration

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Elastic submits actions to an Elasticsearch cluster through the _bulk API.
type Elastic struct {
	client  *elasticsearch.Client
	address string
	timeout time.Duration
}

// Verify interface implementation
var _ Engine = (*Elastic)(nil)

// NewElastic creates an Elasticsearch backend. Credentials are used only
// when both user and password are set.
func NewElastic(cfg ElasticConfig) (*Elastic, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	address, err := buildAddress(cfg.Host, cfg.Port)
	if err != nil {
		return nil, synerr.ConfigError(fmt.Sprintf("invalid engine host %q", cfg.Host), err)
	}

	esCfg := elasticsearch.Config{
		Addresses:    []string{address},
		Transport:    cfg.Transport,
		DisableRetry: true,
	}
	if cfg.User != "" && cfg.Password != "" {
		esCfg.Username = cfg.User
		esCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, synerr.ConfigError("failed to create elasticsearch client", err)
	}

	return &Elastic{
		client:  client,
		address: address,
		timeout: cfg.Timeout,
	}, nil
}

// buildAddress turns host/port into a URL, keeping an explicit scheme or port.
func buildAddress(host string, port int) (string, error) {
	raw := host
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", errors.New("missing hostname")
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Name implements Engine.
func (e *Elastic) Name() string {
	return BackendElastic
}

// Address returns the cluster URL in use.
func (e *Elastic) Address() string {
	return e.address
}

// Ping issues HEAD / and treats anything but 2xx as unreachable.
func (e *Elastic) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return e.transportError(ctx, "failed to ping elasticsearch server", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := e.statusError(res.StatusCode, "failed to ping elasticsearch server"); err != nil {
		return err
	}
	return nil
}

// Bulk sends all actions in one _bulk request with refresh=true.
func (e *Elastic) Bulk(ctx context.Context, actions []Action) (*BulkResponse, error) {
	if len(actions) == 0 {
		return &BulkResponse{}, nil
	}

	body, err := encodeBulkBody(actions)
	if err != nil {
		return nil, synerr.New(synerr.ErrCodeInternal, "failed to encode bulk body", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	res, err := e.client.Bulk(
		bytes.NewReader(body),
		e.client.Bulk.WithContext(ctx),
		e.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return nil, e.transportError(ctx, "bulk request failed", err)
	}
	defer func() { _ = res.Body.Close() }()

	if err := e.statusError(res.StatusCode, "bulk request rejected"); err != nil {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, err.WithDetail("response", string(detail))
	}

	var parsed bulkResponseBody
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, synerr.EngineError(synerr.ErrCodeBulkRejected, "failed to decode bulk response", err)
	}

	resp := &BulkResponse{Took: time.Since(start)}
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Status >= 200 && result.Status < 300 && result.Error == nil {
				continue
			}
			resp.Errors = append(resp.Errors, result.itemError())
		}
	}

	slog.Debug("elastic_bulk_done",
		slog.Int("actions", len(actions)),
		slog.Int("failed", len(resp.Errors)),
		slog.Int("took_ms", parsed.Took))

	return resp, nil
}

// Close implements Engine. The HTTP client holds no resources worth releasing.
func (e *Elastic) Close() error {
	return nil
}

// transportError classifies a failed round trip.
func (e *Elastic) transportError(ctx context.Context, msg string, err error) error {
	code := synerr.ErrCodeEngineUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		code = synerr.ErrCodeEngineTimeout
	}
	return synerr.EngineError(code, fmt.Sprintf("%s at %s", msg, e.address), err).
		WithDetail("address", e.address).
		WithSuggestion("Check that Elasticsearch is running and reachable, or use --backend=bleve")
}

// statusError maps HTTP status codes to engine errors; nil for 2xx.
func (e *Elastic) statusError(status int, msg string) *synerr.SyncError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return synerr.EngineError(synerr.ErrCodeEngineAuth,
			fmt.Sprintf("%s at %s: authentication failed (HTTP %d)", msg, e.address, status), nil).
			WithDetail("address", e.address).
			WithSuggestion("Check --user and --password")
	default:
		return synerr.EngineError(synerr.ErrCodeEngineUnavailable,
			fmt.Sprintf("%s at %s: HTTP %d", msg, e.address, status), nil).
			WithDetail("address", e.address)
	}
}

// bulkMeta is the action line preceding each document.
type bulkMeta struct {
	Index string `json:"_index,omitempty"`
	Type  string `json:"_type,omitempty"`
	ID    string `json:"_id"`
}

// encodeBulkBody renders actions as NDJSON.
func encodeBulkBody(actions []Action) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for _, a := range actions {
		op := a.Op
		if op == "" {
			op = OpIndex
		}
		meta := map[string]bulkMeta{op: {Index: a.Index, Type: a.DocType, ID: a.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode action %s: %w", a.ID, err)
		}
		if err := enc.Encode(a.Source); err != nil {
			return nil, fmt.Errorf("encode source %s: %w", a.ID, err)
		}
	}
	return buf.Bytes(), nil
}

type bulkResponseBody struct {
	Took   int                         `json:"took"`
	Errors bool                        `json:"errors"`
	Items  []map[string]bulkItemResult `json:"items"`
}

type bulkItemResult struct {
	ID     string         `json:"_id"`
	Status int            `json:"status"`
	Error  *bulkItemCause `json:"error,omitempty"`
}

type bulkItemCause struct {
	Type     string         `json:"type"`
	Reason   string         `json:"reason"`
	CausedBy *bulkItemCause `json:"caused_by,omitempty"`
}

func (r bulkItemResult) itemError() ItemError {
	ie := ItemError{DocID: r.ID, Status: r.Status}
	if r.Error != nil {
		ie.Type = r.Error.Type
		ie.Reason = r.Error.Reason
		if r.Error.CausedBy != nil {
			ie.CausedBy = r.Error.CausedBy.Reason
		}
	}
	if ie.Reason == "" {
		ie.Reason = fmt.Sprintf("HTTP %d", r.Status)
	}
	return ie
}
