// Package memory is an in-process sink used by tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
	"github.com/kitbuilder587/yelp-sweep/internal/sink"
)

type Sink struct {
	mu      sync.RWMutex
	streams map[string]*Stream

	// Preloaded помечает термы, у которых "заголовок уже есть".
	Preloaded map[string]bool
}

func New() *Sink {
	return &Sink{
		streams:   make(map[string]*Stream),
		Preloaded: make(map[string]bool),
	}
}

func (s *Sink) Open(ctx context.Context, term string) (sink.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[term]
	if !ok {
		st = &Stream{preloaded: s.Preloaded[term]}
		s.streams[term] = st
	}
	st.Opens++
	return st, nil
}

func (s *Sink) Stream(term string) *Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streams[term]
}

func (s *Sink) Terms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := make([]string, 0, len(s.streams))
	for t := range s.streams {
		terms = append(terms, t)
	}
	return terms
}

type Stream struct {
	mu        sync.Mutex
	preloaded bool

	Headers [][]string
	Rows    []domain.Business
	Opens   int
	Closed  bool
}

func (st *Stream) HasHeader() bool {
	return st.preloaded
}

func (st *Stream) WriteHeader(ctx context.Context, header []string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	h := make([]string, len(header))
	copy(h, header)
	st.Headers = append(st.Headers, h)
	return nil
}

func (st *Stream) WriteRows(ctx context.Context, rows []domain.Business) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Rows = append(st.Rows, rows...)
	return nil
}

func (st *Stream) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Closed = true
	return nil
}

func (st *Stream) IDs() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	ids := make([]string, len(st.Rows))
	for i, r := range st.Rows {
		ids[i] = r.ID
	}
	return ids
}
