package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kitbuilder587/yelp-sweep/internal/search"
)

// Client - скриптовый stub: отдает ответы из очереди по порядку,
// либо считает ответ через Handler, если он задан.
type Client struct {
	Responses []Step
	Handler   func(req search.Request) (*search.Response, error)

	CallCount   int
	LastRequest search.Request
	AllRequests []search.Request

	mu sync.Mutex
}

type Step struct {
	Response *search.Response
	Err      error
}

func New() *Client {
	return &Client{}
}

func (c *Client) WithPage(total int, businesses ...json.RawMessage) *Client {
	c.Responses = append(c.Responses, Step{Response: &search.Response{Total: total, Businesses: businesses}})
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Responses = append(c.Responses, Step{Err: err})
	return c
}

func (c *Client) WithHandler(h func(req search.Request) (*search.Response, error)) *Client {
	c.Handler = h
	return c
}

func (c *Client) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)
	handler := c.Handler
	var step *Step
	if handler == nil && len(c.Responses) > 0 {
		step = &c.Responses[0]
		c.Responses = c.Responses[1:]
	}
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &search.TransportError{Err: err}
	}

	if handler != nil {
		return handler(req)
	}
	if step == nil {
		return nil, fmt.Errorf("mock: unexpected call #%d (offset %d, bounds %s)", c.CallCount, req.Offset, req.Bounds)
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

func (c *Client) Offsets() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	offsets := make([]int, len(c.AllRequests))
	for i, r := range c.AllRequests {
		offsets[i] = r.Offset
	}
	return offsets
}

// Business builds a minimal raw business with all required fields set.
func Business(id string) json.RawMessage {
	raw, _ := json.Marshal(map[string]interface{}{
		"id":           id,
		"name":         "Business " + id,
		"rating":       4.5,
		"review_count": 10,
	})
	return raw
}

func Businesses(ids ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(ids))
	for i, id := range ids {
		out[i] = Business(id)
	}
	return out
}
