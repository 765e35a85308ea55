package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
	"github.com/kitbuilder587/yelp-sweep/internal/metrics"
	"github.com/kitbuilder587/yelp-sweep/internal/partition"
)

const (
	OutcomeCompleted = "completed"
	OutcomeTooDense  = "too_dense"
	OutcomeFailed    = "failed"
)

// RegionSweeper is what the harvest needs from the partitioner.
type RegionSweeper interface {
	Run(ctx context.Context, region domain.Region, req domain.SweepRequest) (partition.Stats, error)
}

type Notifier interface {
	NotifyRun(ctx context.Context, summary *Summary) error
}

type Summary struct {
	RunID     uuid.UUID
	Term      string
	Regions   int
	Completed int
	Stats     partition.Stats
	StartedAt time.Time
	Duration  time.Duration

	// FailedRegion - geoid региона, на котором прогон остановился.
	FailedRegion string
	Err          error
}

func (s *Summary) OK() bool {
	return s.Err == nil
}

type HarvestService interface {
	Harvest(ctx context.Context, regions []domain.Region, req domain.SweepRequest) (*Summary, error)
}

type harvestService struct {
	sweeper  RegionSweeper
	notifier Notifier
	runID    uuid.UUID
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewHarvestService wires the region loop. notifier may be nil.
func NewHarvestService(sweeper RegionSweeper, notifier Notifier, runID uuid.UUID, logger *zap.Logger, m *metrics.Metrics) HarvestService {
	return &harvestService{
		sweeper:  sweeper,
		notifier: notifier,
		runID:    runID,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Harvest sweeps the regions one after another. The first error stops the
// run; the summary is returned either way and sent to the notifier.
func (s *harvestService) Harvest(ctx context.Context, regions []domain.Region, req domain.SweepRequest) (*Summary, error) {
	summary := &Summary{
		RunID:     s.runID,
		Term:      req.Term,
		Regions:   len(regions),
		StartedAt: s.now(),
	}

	s.logger.Info("harvest started",
		zap.String("run_id", s.runID.String()),
		zap.String("term", req.Term),
		zap.Int("regions", len(regions)),
		zap.Int("offset", req.Offset),
		zap.Int("limit", req.Limit),
	)

	for i, region := range regions {
		s.logger.Info("sweeping region",
			zap.String("region_id", region.ID),
			zap.String("bounds", region.Bounds()),
			zap.Int("index", i+1),
			zap.Int("of", len(regions)),
		)

		stats, err := s.sweeper.Run(ctx, region, req)
		summary.Stats.Add(stats)

		if err != nil {
			s.recordRegion(outcomeOf(err), stats.MaxDepth)
			summary.FailedRegion = region.ID
			summary.Err = fmt.Errorf("region %s: %w", region.ID, err)
			break
		}

		s.recordRegion(OutcomeCompleted, stats.MaxDepth)
		summary.Completed++

		s.logger.Info("region done",
			zap.String("region_id", region.ID),
			zap.Int("rows", stats.Rows),
			zap.Int("calls", stats.Calls),
			zap.Int("subdivisions", stats.Subdivisions),
		)
	}

	summary.Duration = s.now().Sub(summary.StartedAt)

	fields := []zap.Field{
		zap.String("run_id", s.runID.String()),
		zap.Int("completed", summary.Completed),
		zap.Int("regions", summary.Regions),
		zap.Int("rows", summary.Stats.Rows),
		zap.Int("skipped", summary.Stats.Skipped),
		zap.Duration("duration", summary.Duration),
	}
	if summary.Err != nil {
		s.logger.Error("harvest aborted", append(fields, zap.Error(summary.Err))...)
	} else {
		s.logger.Info("harvest finished", fields...)
	}

	if s.notifier != nil {
		// уведомление best-effort, прогон уже закончен
		if err := s.notifier.NotifyRun(context.WithoutCancel(ctx), summary); err != nil {
			s.logger.Warn("failed to send run summary", zap.Error(err))
		}
	}

	return summary, summary.Err
}

func (s *harvestService) recordRegion(outcome string, depth int) {
	if s.metrics != nil {
		s.metrics.RecordRegion(outcome, depth)
	}
}

func outcomeOf(err error) string {
	if errors.Is(err, partition.ErrRegionTooDense) {
		return OutcomeTooDense
	}
	return OutcomeFailed
}
