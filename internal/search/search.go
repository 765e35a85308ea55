package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrTransport      = errors.New("search transport error")
	ErrInvalidRequest = errors.New("invalid request parameters")
)

type Client interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

type Request struct {
	Term   string
	Bounds string
	Offset int
	Limit  int
}

func (r Request) Validate() error {
	if r.Term == "" || r.Bounds == "" || r.Offset < 0 || r.Limit < 1 {
		return ErrInvalidRequest
	}
	return nil
}

// Response - одна страница. Total относится к запрошенному bounds, а не ко всему датасету.
type Response struct {
	Businesses []json.RawMessage
	Total      int
}

// TransportError is returned for any call that did not produce a usable page:
// non-2xx status, network failure or an undecodable body.
type TransportError struct {
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("search failed: %s: %s", e.Status, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("search failed: %s", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("search failed: %v", e.Err)
	default:
		return "search failed"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
