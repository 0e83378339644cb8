package jellyfin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"mergeversions/internal/config"
	"mergeversions/internal/logging"
	"mergeversions/internal/media"
	"mergeversions/internal/services"
)

const (
	backendName     = "jellyfin"
	defaultPageSize = 500
	maxErrorBody    = 512
	retryDelay      = 500 * time.Millisecond
	itemFields      = "Path,ProviderIds,MediaSourceCount,ParentId"
	locationVirtual = "Virtual"
)

// HTTPDoer describes the HTTP client used by the Jellyfin service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client reads the Jellyfin item index and calls its version endpoints.
type Client struct {
	baseURL  string
	apiKey   string
	userID   string
	pageSize int
	client   HTTPDoer
	logger   *slog.Logger

	limiter    *rate.Limiter
	retries    int
	retryDelay time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithUserID scopes item queries to one user's view of the library.
func WithUserID(id string) Option {
	return func(c *Client) { c.userID = strings.TrimSpace(id) }
}

// WithPageSize sets the number of items requested per page.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRateLimit caps outgoing requests at rps per second. Zero disables the
// limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRetry sets how many extra attempts read requests get on transient
// failures, and the base backoff between them.
func WithRetry(retries int, delay time.Duration) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = retries
		}
		if delay > 0 {
			c.retryDelay = delay
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Jellyfin client for baseURL authenticated by apiKey.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:   strings.TrimSpace(apiKey),
		pageSize: defaultPageSize,
		client:   http.DefaultClient,
		logger:   logging.NewNop(),

		retryDelay: retryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the jellyfin configuration section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, backendName, "configure", "config is nil", nil)
	}
	if strings.TrimSpace(cfg.Jellyfin.URL) == "" || strings.TrimSpace(cfg.Jellyfin.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, backendName, "configure", "url and api_key are required", nil)
	}
	timeout := time.Duration(cfg.Jellyfin.RequestTimeout) * time.Second
	return New(cfg.Jellyfin.URL, cfg.Jellyfin.APIKey,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithUserID(cfg.Jellyfin.UserID),
		WithPageSize(cfg.Jellyfin.PageSize),
		WithRetry(cfg.Jellyfin.Retries, 0),
		WithRateLimit(cfg.Jellyfin.MaxRequestsPerSecond),
		WithLogger(logging.NewComponentLogger(logger, "jellyfin")),
	), nil
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// ServerInfo is the subset of /System/Info reported by Ping.
type ServerInfo struct {
	ID         string `json:"Id"`
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
}

type itemDTO struct {
	ID               string            `json:"Id"`
	Name             string            `json:"Name"`
	Type             string            `json:"Type"`
	ProductionYear   int               `json:"ProductionYear"`
	Path             string            `json:"Path"`
	ParentID         string            `json:"ParentId"`
	ProviderIDs      map[string]string `json:"ProviderIds"`
	LocationType     string            `json:"LocationType"`
	SeriesName       string            `json:"SeriesName"`
	SeasonName       string            `json:"SeasonName"`
	IndexNumber      *int              `json:"IndexNumber"`
	MediaSourceCount int               `json:"MediaSourceCount"`
	PrimaryVersionID string            `json:"PrimaryVersionId"`
}

type itemsPage struct {
	Items            []itemDTO `json:"Items"`
	TotalRecordCount int       `json:"TotalRecordCount"`
	StartIndex       int       `json:"StartIndex"`
}

// Query pages through /Items and returns every item matching q.
func (c *Client) Query(ctx context.Context, q media.Query) ([]media.Item, error) {
	var items []media.Item
	start := 0
	for {
		params := c.queryParams(q)
		params.Set("StartIndex", strconv.Itoa(start))
		params.Set("Limit", strconv.Itoa(c.pageSize))

		var page itemsPage
		if err := c.getJSON(ctx, "query", "/Items", params, &page); err != nil {
			return nil, err
		}
		for _, dto := range page.Items {
			items = append(items, dto.toItem(q.Kind))
		}
		c.logger.Debug("fetched item page",
			logging.String(logging.FieldKind, q.Kind.Plural()),
			logging.Int("start", start),
			logging.Int("count", len(page.Items)),
			logging.Int("total", page.TotalRecordCount),
		)

		start += len(page.Items)
		if len(page.Items) < c.pageSize {
			break
		}
		if page.TotalRecordCount > 0 && start >= page.TotalRecordCount {
			break
		}
	}
	return items, nil
}

func (c *Client) queryParams(q media.Query) url.Values {
	params := url.Values{}
	params.Set("IncludeItemTypes", string(q.Kind))
	params.Set("Recursive", strconv.FormatBool(q.Recursive))
	params.Set("Fields", itemFields)
	if q.ExcludeVirtual {
		params.Set("ExcludeLocationTypes", locationVirtual)
	}
	if q.RequireExternalID {
		params.Set("HasTmdbId", "true")
	}
	if c.userID != "" {
		params.Set("userId", c.userID)
	}
	return params
}

// MergeVersions links ids as versions of one item.
func (c *Client) MergeVersions(ctx context.Context, ids []string) error {
	if len(ids) < 2 {
		return services.Wrap(services.ErrValidation, backendName, "merge", fmt.Sprintf("need at least two ids, got %d", len(ids)), nil)
	}
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	return c.do(ctx, "merge", http.MethodPost, "/Videos/MergeVersions", params, nil)
}

// SplitVersions removes every alternate source linked to id.
func (c *Client) SplitVersions(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return services.Wrap(services.ErrValidation, backendName, "split", "item id is required", nil)
	}
	path := "/Videos/" + url.PathEscape(id) + "/AlternateSources"
	return c.do(ctx, "split", http.MethodDelete, path, nil, nil)
}

// Ping verifies the server is reachable and the API key is accepted.
func (c *Client) Ping(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := c.getJSON(ctx, "ping", "/System/Info", nil, &info)
	return info, err
}

// getJSON issues an idempotent GET, retrying transient failures.
func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	return retry.Do(
		func() error { return c.do(ctx, op, http.MethodGet, path, params, out) },
		retry.Context(ctx),
		retry.Attempts(uint(c.retries)+1),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying jellyfin request",
				logging.String(logging.FieldEventType, "jellyfin_retry"),
				logging.String("path", path),
				logging.Int("attempt", int(n)+1),
				logging.Error(err),
			)
		}),
	)
}

func retryable(err error) bool {
	return errors.Is(err, services.ErrTransient) || errors.Is(err, services.ErrTimeout)
}

func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return services.Wrap(services.ErrTimeout, backendName, op, "rate limit wait", err)
		}
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, backendName, op, "build request", err)
	}
	req.Header.Set("X-Emby-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		marker := services.ErrTransient
		if ctx.Err() != nil {
			marker = services.ErrTimeout
		}
		return services.Wrap(marker, backendName, op, "request failed", err)
	}
	defer resp.Body.Close()

	logger := c.logger
	if runID, ok := services.RunIDFromContext(ctx); ok {
		logger = logger.With(logging.String(logging.FieldRunID, runID))
	}
	logger.Debug("jellyfin request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
		return services.Wrap(services.MarkerForStatus(resp.StatusCode), backendName, op, "", statusErr)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, backendName, op, "decode response", err)
	}
	return nil
}

func (d itemDTO) toItem(fallback media.Kind) media.Item {
	kind := fallback
	if parsed, err := media.ParseKind(d.Type); err == nil {
		kind = parsed
	}
	item := media.Item{
		ID:          d.ID,
		Kind:        kind,
		Name:        d.Name,
		Year:        d.ProductionYear,
		Path:        d.Path,
		ParentID:    d.ParentID,
		ProviderIDs: d.ProviderIDs,
		Virtual:     strings.EqualFold(d.LocationType, locationVirtual),
		SeriesName:  d.SeriesName,
		SeasonName:  d.SeasonName,
		IndexNumber: d.IndexNumber,

		PrimaryVersionID: d.PrimaryVersionID,
	}
	switch {
	case d.MediaSourceCount > 1:
		item.State = media.MergeState{Role: media.RolePrimary, LinkedAlternateCount: d.MediaSourceCount - 1}
	case d.PrimaryVersionID != "":
		item.State = media.MergeState{Role: media.RoleAlternate}
	}
	return item
}
