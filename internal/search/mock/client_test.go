package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/kitbuilder587/yelp-sweep/internal/search"
)

func TestMockClient_QueuedPages(t *testing.T) {
	client := New().
		WithPage(3, Businesses("a", "b")...).
		WithPage(3, Businesses("c")...)

	resp, err := client.Search(context.Background(), search.Request{Term: "pizza", Offset: 0})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Businesses) != 2 || resp.Total != 3 {
		t.Errorf("first page = %d items total %d, want 2 / 3", len(resp.Businesses), resp.Total)
	}

	resp, err = client.Search(context.Background(), search.Request{Term: "pizza", Offset: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Businesses) != 1 {
		t.Errorf("second page = %d items, want 1", len(resp.Businesses))
	}

	if _, err := client.Search(context.Background(), search.Request{Term: "pizza", Offset: 2}); err == nil {
		t.Error("Search() expected error after queue is drained")
	}

	if client.CallCount != 3 {
		t.Errorf("CallCount = %d, want 3", client.CallCount)
	}
	offsets := client.Offsets()
	if len(offsets) != 3 || offsets[0] != 0 || offsets[1] != 1 || offsets[2] != 2 {
		t.Errorf("Offsets() = %v", offsets)
	}
}

func TestMockClient_Error(t *testing.T) {
	want := &search.TransportError{StatusCode: 500, Status: "500 Internal Server Error"}
	client := New().WithError(want)

	_, err := client.Search(context.Background(), search.Request{Term: "test"})
	if !errors.Is(err, search.ErrTransport) {
		t.Errorf("Search() error = %v, want ErrTransport", err)
	}
}

func TestMockClient_Handler(t *testing.T) {
	client := New().WithHandler(func(req search.Request) (*search.Response, error) {
		return &search.Response{Total: req.Offset}, nil
	})

	resp, err := client.Search(context.Background(), search.Request{Term: "t", Offset: 7})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 7 {
		t.Errorf("Total = %d, want 7", resp.Total)
	}
	if client.LastRequest.Offset != 7 {
		t.Errorf("LastRequest.Offset = %d, want 7", client.LastRequest.Offset)
	}
}

func TestMockClient_ContextCancellation(t *testing.T) {
	client := New().WithPage(1, Business("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, search.Request{Term: "test"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Search() error = %v, want context.Canceled", err)
	}
}
