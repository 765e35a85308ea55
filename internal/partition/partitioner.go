// Package partition walks a region's results page by page and splits the
// region into latitude bands when the reported total is above what offset
// pagination can reach.
package partition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
	"github.com/kitbuilder587/yelp-sweep/internal/metrics"
	"github.com/kitbuilder587/yelp-sweep/internal/normalize"
	"github.com/kitbuilder587/yelp-sweep/internal/search"
	"github.com/kitbuilder587/yelp-sweep/internal/sink"
)

var ErrRegionTooDense = errors.New("region too dense")

type RegionTooDenseError struct {
	Region domain.Region
	Total  int
	Depth  int
}

func (e *RegionTooDenseError) Error() string {
	return fmt.Sprintf("region %s still reports %d results after %d subdivisions", e.Region.Bounds(), e.Total, e.Depth)
}

func (e *RegionTooDenseError) Is(target error) bool {
	return target == ErrRegionTooDense
}

type Config struct {
	// Ceiling - сколько результатов реально достижимо через offset для одного bounds.
	Ceiling  int
	MaxDepth int
}

type Stats struct {
	Calls        int
	Rows         int
	Skipped      int
	Subdivisions int
	MaxDepth     int
}

func (s *Stats) Add(o Stats) {
	s.Calls += o.Calls
	s.Rows += o.Rows
	s.Skipped += o.Skipped
	s.Subdivisions += o.Subdivisions
	if o.MaxDepth > s.MaxDepth {
		s.MaxDepth = o.MaxDepth
	}
}

type Partitioner struct {
	client  search.Client
	sink    sink.Writer
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(client search.Client, w sink.Writer, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Partitioner {
	if cfg.Ceiling == 0 {
		cfg.Ceiling = domain.DefaultCeiling
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 10
	}

	return &Partitioner{
		client:  client,
		sink:    w,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

type action int

const (
	actionExhausted action = iota
	actionSubdivide
	actionPage
)

func (a action) String() string {
	switch a {
	case actionExhausted:
		return "exhausted"
	case actionSubdivide:
		return "subdivide"
	case actionPage:
		return "page"
	default:
		return "unknown"
	}
}

// decide looks only at the response: the reported total decides between
// subdividing and paging, an empty page ends the branch.
func decide(resp *search.Response, ceiling int) action {
	switch {
	case resp.Total == 0:
		return actionExhausted
	case resp.Total > ceiling:
		return actionSubdivide
	case len(resp.Businesses) == 0:
		return actionExhausted
	default:
		return actionPage
	}
}

// frame - состояние одной ветки рекурсии. Регион принадлежит только ей.
type frame struct {
	region      domain.Region
	splitFactor int
	depth       int
}

type sweep struct {
	p     *Partitioner
	term  string
	limit int
	stats Stats
}

// Run sweeps one top-level region starting at req.Offset. Rows are appended
// to the sink page by page; nothing is accumulated in memory. A transport
// error or a region that stays too dense aborts the sweep.
func (p *Partitioner) Run(ctx context.Context, region domain.Region, req domain.SweepRequest) (Stats, error) {
	req.Sanitize()
	if err := req.Validate(); err != nil {
		return Stats{}, err
	}
	if err := region.Validate(); err != nil {
		return Stats{}, err
	}

	s := &sweep{p: p, term: req.Term, limit: req.Limit}
	err := s.paginate(ctx, frame{region: region, splitFactor: 1}, req.Offset)
	return s.stats, err
}

func (s *sweep) paginate(ctx context.Context, f frame, offset int) error {
	ceiling := s.p.cfg.Ceiling

	for {
		if offset >= ceiling {
			s.p.logger.Warn("offset is past the reachable ceiling, stopping",
				zap.String("bounds", f.region.Bounds()),
				zap.Int("offset", offset),
				zap.Int("ceiling", ceiling),
			)
			return nil
		}

		// offset+limit не должен выходить за ceiling, иначе API отклонит запрос
		limit := min(s.limit, ceiling-offset)

		resp, err := s.query(ctx, f.region, offset, limit)
		if err != nil {
			return err
		}

		switch decide(resp, ceiling) {
		case actionExhausted:
			s.p.logger.Debug("region exhausted",
				zap.String("bounds", f.region.Bounds()),
				zap.Int("offset", offset),
				zap.Int("depth", f.depth),
			)
			return nil
		case actionSubdivide:
			return s.subdivide(ctx, f, resp.Total)
		}

		if err := s.flush(ctx, resp.Businesses); err != nil {
			return err
		}

		if len(resp.Businesses) < limit {
			s.p.logger.Debug("reached last page",
				zap.String("bounds", f.region.Bounds()),
				zap.Int("offset", offset),
				zap.Int("total", resp.Total),
			)
			return nil
		}

		if offset+limit >= ceiling {
			s.p.logger.Debug("reached the reachable ceiling",
				zap.String("bounds", f.region.Bounds()),
				zap.Int("offset", offset),
				zap.Int("limit", limit),
				zap.Int("total", resp.Total),
			)
			return nil
		}

		// соседние страницы API перекрываются на один результат, поэтому -1
		offset += limit - 1
	}
}

func (s *sweep) subdivide(ctx context.Context, f frame, total int) error {
	if f.depth >= s.p.cfg.MaxDepth {
		return &RegionTooDenseError{Region: f.region, Total: total, Depth: f.depth}
	}

	n := f.splitFactor + 1
	s.stats.Subdivisions++
	if s.p.metrics != nil {
		s.p.metrics.RecordSubdivision()
	}

	s.p.logger.Info("subdividing region",
		zap.String("region_id", f.region.ID),
		zap.String("bounds", f.region.Bounds()),
		zap.Int("total", total),
		zap.Int("bands", n),
		zap.Int("depth", f.depth+1),
	)

	for i, band := range f.region.LatBands(n) {
		child := frame{region: band, splitFactor: n, depth: f.depth + 1}
		if child.depth > s.stats.MaxDepth {
			s.stats.MaxDepth = child.depth
		}

		s.p.logger.Debug("querying band",
			zap.Int("band", i+1),
			zap.Int("of", n),
			zap.String("bounds", band.Bounds()),
		)

		if err := s.paginate(ctx, child, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *sweep) query(ctx context.Context, region domain.Region, offset, limit int) (*search.Response, error) {
	bounds := region.Bounds()
	s.stats.Calls++

	resp, err := s.p.client.Search(ctx, search.Request{
		Term:   s.term,
		Bounds: bounds,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s at offset %d: %w", bounds, offset, err)
	}

	fields := []zap.Field{
		zap.String("term", s.term),
		zap.String("bounds", bounds),
		zap.Int("offset", offset),
		zap.Int("businesses", len(resp.Businesses)),
		zap.Int("total", resp.Total),
	}
	if resp.Total > 0 {
		done := float64(offset+len(resp.Businesses)) / float64(resp.Total) * 100
		fields = append(fields, zap.Float64("percent", done))
	}
	s.p.logger.Debug("page fetched", fields...)

	return resp, nil
}

func (s *sweep) flush(ctx context.Context, raws []json.RawMessage) error {
	rows, skipped := normalize.NormalizePage(raws)

	for _, reason := range skipped {
		s.p.logger.Warn("business skipped", zap.String("term", s.term), zap.String("reason", reason))
	}
	if len(skipped) > 0 {
		s.stats.Skipped += len(skipped)
		if s.p.metrics != nil {
			s.p.metrics.RecordRowsSkipped(len(skipped))
		}
	}

	if err := s.p.sink.Append(ctx, s.term, domain.Header(), rows); err != nil {
		return fmt.Errorf("append rows: %w", err)
	}
	s.stats.Rows += len(rows)
	return nil
}
