package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"airtwin/internal/external"
	"airtwin/internal/types"
)

const (
	defaultTimeout = 10 * time.Second
	entityPageSize = 1000
	maxBodyBytes   = 8 << 20
)

// ClientConfig configures the broker and history endpoints.
type ClientConfig struct {
	BrokerURL   string
	HistoryURL  string
	Service     string
	ServicePath string
	Timeout     time.Duration
	UserAgent   string
	// Options are applied to both underlying BaseClients.
	Options []external.BaseClientOption
	Logger  *slog.Logger
}

// Client reads entities from the context broker and attribute history from
// the time-series store.
type Client struct {
	brokerURL  *url.URL
	historyURL *url.URL
	broker     *external.BaseClient
	history    *external.BaseClient
	logger     *slog.Logger
}

// NewClient creates a broker client. BrokerURL is required; without
// HistoryURL, GetHistory reports upstream_unavailable. The broker and history
// endpoints get separate circuit breakers, so a failing history store does not
// block snapshot refreshes.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("broker: BrokerURL is required")
	}
	brokerURL, err := url.Parse(strings.TrimRight(cfg.BrokerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("broker: invalid BrokerURL: %w", err)
	}
	var historyURL *url.URL
	if cfg.HistoryURL != "" {
		if historyURL, err = url.Parse(strings.TrimRight(cfg.HistoryURL, "/")); err != nil {
			return nil, fmt.Errorf("broker: invalid HistoryURL: %w", err)
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ServicePath == "" {
		cfg.ServicePath = "/"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := append([]external.BaseClientOption{
		external.WithHeader("Fiware-Service", cfg.Service),
		external.WithHeader("Fiware-ServicePath", cfg.ServicePath),
	}, cfg.Options...)
	httpClient := &http.Client{Timeout: cfg.Timeout}

	return &Client{
		brokerURL:  brokerURL,
		historyURL: historyURL,
		broker:     external.NewBaseClient(httpClient, "context-broker", external.DefaultRetryPolicy(), cfg.UserAgent, opts...),
		history:    external.NewBaseClient(httpClient, "history-store", external.DefaultRetryPolicy(), cfg.UserAgent, opts...),
		logger:     cfg.Logger,
	}, nil
}

// ListEntities returns every entity of the given type, following pagination.
func (c *Client) ListEntities(ctx context.Context, entityType string) ([]Entity, error) {
	var all []Entity
	for offset := 0; ; offset += entityPageSize {
		q := url.Values{}
		q.Set("type", entityType)
		q.Set("limit", strconv.Itoa(entityPageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page []Entity
		if err := c.get(ctx, c.broker, c.brokerURL, "/v2/entities", q, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < entityPageSize {
			break
		}
	}
	c.logger.Debug("listed entities", "type", entityType, "count", len(all))
	return all, nil
}

// GetEntity returns a single entity by its full id.
func (c *Client) GetEntity(ctx context.Context, id string) (Entity, error) {
	var e Entity
	err := c.get(ctx, c.broker, c.brokerURL, "/v2/entities/"+url.PathEscape(id), nil, &e)
	return e, err
}

// GetHistory returns the attribute time series selected by q.
func (c *Client) GetHistory(ctx context.Context, q types.HistoryQuery) (types.TimeSeries, error) {
	if c.historyURL == nil {
		return types.TimeSeries{}, types.NewAppError(types.ErrCodeUpstreamUnavailable, "history store not configured", nil)
	}
	if err := types.ValidateStruct(q); err != nil {
		return types.TimeSeries{}, err
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return types.TimeSeries{}, types.NewValidationError("toDate", "must not be before fromDate")
	}

	params := url.Values{}
	params.Set("attrs", strings.Join(q.Attrs, ","))
	if q.EntityType != "" {
		params.Set("type", q.EntityType)
	}
	if !q.From.IsZero() {
		params.Set("fromDate", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("toDate", q.To.UTC().Format(time.RFC3339))
	}
	if q.LastN > 0 {
		params.Set("lastN", strconv.Itoa(q.LastN))
	}

	var raw historyResponse
	if err := c.get(ctx, c.history, c.historyURL, "/v2/entities/"+url.PathEscape(q.EntityID), params, &raw); err != nil {
		return types.TimeSeries{}, err
	}
	return toTimeSeries(q, raw)
}

// Ping checks that the context broker answers.
func (c *Client) Ping(ctx context.Context) error {
	var v map[string]any
	return c.get(ctx, c.broker, c.brokerURL, "/version", nil, &v)
}

// get issues a GET for the escaped path below base and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, bc *external.BaseClient, base *url.URL, path string, q url.Values, out any) error {
	u := base.JoinPath(path)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build upstream request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := bc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return types.NewAppErrorWithDetails(types.ErrCodeNotFoundEntity,
			fmt.Sprintf("entity not found: %s", path), nil, map[string]any{"path": path})
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.NewAppError(types.ErrCodeUpstreamBadResponse,
			fmt.Sprintf("upstream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamBadResponse, "failed to decode upstream response", err)
	}
	return nil
}

func toTimeSeries(q types.HistoryQuery, raw historyResponse) (types.TimeSeries, error) {
	ts := types.TimeSeries{
		EntityID:   raw.EntityID,
		EntityType: raw.EntityType,
		Index:      make([]time.Time, 0, len(raw.Index)),
		Attributes: make(map[string][]any, len(raw.Attributes)),
	}
	if ts.EntityID == "" {
		ts.EntityID = q.EntityID
	}
	for i, s := range raw.Index {
		t, err := parseTime(s)
		if err != nil {
			return types.TimeSeries{}, types.NewAppError(types.ErrCodeUpstreamBadResponse,
				fmt.Sprintf("history index[%d] is not a timestamp", i), err)
		}
		ts.Index = append(ts.Index, t)
	}
	for _, a := range raw.Attributes {
		if len(a.Values) != len(ts.Index) {
			return types.TimeSeries{}, types.NewAppError(types.ErrCodeUpstreamBadResponse,
				fmt.Sprintf("history attribute %s has %d values for %d timestamps", a.AttrName, len(a.Values), len(ts.Index)), nil)
		}
		ts.Attributes[a.AttrName] = a.Values
	}
	return ts, nil
}
