package yelp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/kitbuilder587/yelp-sweep/internal/metrics"
	"github.com/kitbuilder587/yelp-sweep/internal/search"
)

const maxErrorBody = 512

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New expects BaseURL to point at a business search endpoint that accepts a
// bounds box; the client appends "/search".
func New(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.APIKey,
		TokenType:   "Bearer",
	})
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
		logger:  logger,
		metrics: m,
	}
}

type yelpResponse struct {
	Total      int               `json:"total"`
	Businesses []json.RawMessage `json:"businesses"`
}

// Search делает ровно один запрос. Ретраев нет: любая ошибка - TransportError.
func (c *Client) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("term", req.Term)
	q.Set("bounds", req.Bounds)
	q.Set("offset", strconv.Itoa(req.Offset))
	q.Set("limit", strconv.Itoa(req.Limit))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.record("error", start)
		return nil, &search.TransportError{Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record("error", start)
		return nil, &search.TransportError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(strconv.Itoa(resp.StatusCode), start)
		c.logger.Error("search request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("bounds", req.Bounds),
			zap.Int("offset", req.Offset),
		)
		return nil, &search.TransportError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(string(body), maxErrorBody),
		}
	}

	var yr yelpResponse
	if err := json.Unmarshal(body, &yr); err != nil {
		c.record("decode_error", start)
		return nil, &search.TransportError{StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	c.record("ok", start)
	c.logger.Debug("search page received",
		zap.String("term", req.Term),
		zap.String("bounds", req.Bounds),
		zap.Int("offset", req.Offset),
		zap.Int("businesses", len(yr.Businesses)),
		zap.Int("total", yr.Total),
		zap.Duration("took", time.Since(start)),
	)

	return &search.Response{
		Businesses: yr.Businesses,
		Total:      yr.Total,
	}, nil
}

func (c *Client) record(status string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordSearchRequest(status, time.Since(start))
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
