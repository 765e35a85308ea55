// Package file writes one pipe-delimited file per search term.
package file

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
	"github.com/kitbuilder587/yelp-sweep/internal/sink"
)

const (
	Delimiter     = '|'
	DefaultPrefix = "yelp-biz-result-"
	extension     = ".csv"
)

type Config struct {
	Dir    string
	Prefix string
}

type Sink struct {
	dir    string
	prefix string
}

func New(cfg Config) *Sink {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &Sink{dir: cfg.Dir, prefix: cfg.Prefix}
}

func (s *Sink) Path(term string) string {
	return filepath.Join(s.dir, s.prefix+fileSafe(term)+extension)
}

// Open appends to an existing file; a non-empty file is assumed to have its header.
func (s *Sink) Open(ctx context.Context, term string) (sink.Stream, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	path := s.Path(term)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	w.Comma = Delimiter

	return &stream{f: f, w: w, hasHeader: info.Size() > 0}, nil
}

type stream struct {
	f         *os.File
	w         *csv.Writer
	hasHeader bool
}

func (s *stream) HasHeader() bool {
	return s.hasHeader
}

func (s *stream) WriteHeader(ctx context.Context, header []string) error {
	if err := s.w.Write(header); err != nil {
		return err
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	s.hasHeader = true
	return nil
}

// WriteRows flushes after every page so a crash loses at most the page in flight.
func (s *stream) WriteRows(ctx context.Context, rows []domain.Business) error {
	for _, r := range rows {
		if err := s.w.Write(r.Record()); err != nil {
			return err
		}
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *stream) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// fileSafe убирает из терма символы, которые ломают путь.
func fileSafe(term string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, term)
}
