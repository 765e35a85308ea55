// Package sink appends normalized rows to one output stream per search term.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
	"github.com/kitbuilder587/yelp-sweep/internal/metrics"
)

var ErrClosed = errors.New("sink is closed")

type Writer interface {
	Append(ctx context.Context, term string, header []string, rows []domain.Business) error
	Close() error
}

// Stream is one open, append-only destination owned by the Registry.
type Stream interface {
	// HasHeader reports whether the destination already carries a header
	// (e.g. a file left by a previous run).
	HasHeader() bool
	WriteHeader(ctx context.Context, header []string) error
	WriteRows(ctx context.Context, rows []domain.Business) error
	Close() error
}

type Opener interface {
	Open(ctx context.Context, term string) (Stream, error)
}

type OpenerFunc func(ctx context.Context, term string) (Stream, error)

func (f OpenerFunc) Open(ctx context.Context, term string) (Stream, error) {
	return f(ctx, term)
}

type entry struct {
	stream        Stream
	headerWritten bool
}

// Registry maps term -> open stream. Streams are opened on first Append and
// live until Close. The header check and the append happen under one lock.
type Registry struct {
	mu      sync.Mutex
	opener  Opener
	streams map[string]*entry
	closed  bool
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewRegistry(opener Opener, logger *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		opener:  opener,
		streams: make(map[string]*entry),
		logger:  logger,
		metrics: m,
	}
}

func (r *Registry) Append(ctx context.Context, term string, header []string, rows []domain.Business) error {
	if len(rows) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	e, ok := r.streams[term]
	if !ok {
		stream, err := r.opener.Open(ctx, term)
		if err != nil {
			return fmt.Errorf("open stream for %q: %w", term, err)
		}
		e = &entry{stream: stream, headerWritten: stream.HasHeader()}
		r.streams[term] = e
		r.logger.Info("output stream opened",
			zap.String("term", term),
			zap.Bool("has_header", e.headerWritten),
		)
	}

	if !e.headerWritten {
		if err := e.stream.WriteHeader(ctx, header); err != nil {
			return fmt.Errorf("write header for %q: %w", term, err)
		}
		e.headerWritten = true
	}

	if err := e.stream.WriteRows(ctx, rows); err != nil {
		return fmt.Errorf("write rows for %q: %w", term, err)
	}

	if r.metrics != nil {
		r.metrics.RecordRowsWritten(term, len(rows))
	}
	return nil
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for term, e := range r.streams {
		if err := e.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream for %q: %w", term, err))
		}
	}
	r.streams = nil
	return errors.Join(errs...)
}
