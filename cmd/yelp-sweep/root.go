package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/yelp-sweep/internal/config"
	"github.com/kitbuilder587/yelp-sweep/internal/domain"
	"github.com/kitbuilder587/yelp-sweep/internal/metrics"
	"github.com/kitbuilder587/yelp-sweep/internal/notify"
	"github.com/kitbuilder587/yelp-sweep/internal/partition"
	"github.com/kitbuilder587/yelp-sweep/internal/regions"
	"github.com/kitbuilder587/yelp-sweep/internal/search/yelp"
	"github.com/kitbuilder587/yelp-sweep/internal/service"
	"github.com/kitbuilder587/yelp-sweep/internal/sink"
	"github.com/kitbuilder587/yelp-sweep/internal/sink/file"
	"github.com/kitbuilder587/yelp-sweep/internal/sink/postgres"
)

const shutdownTimeout = 5 * time.Second

type options struct {
	term   string
	offset int
	limit  int
	file   string
	sink   string
	outDir string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "yelp-sweep",
		Short: "Exhaustive business search over a list of regions",
		Long: `yelp-sweep pages through the business search API for one term over every
region in a ';'-delimited file (geoid;minlat;maxlat;minlon;maxlon). Regions
that report more results than offset pagination can reach are split into
latitude bands until every band fits.

Example usage:
  yelp-sweep --term pizza --file regions.csv
  yelp-sweep --term "applebee's" --offset 0 --limit 20 --sink postgres`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := applyFlags(cmd, cfg, opts); err != nil {
				return err
			}

			logger, err := config.NewLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, opts, logger, metrics.New())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.term, "term", "dinner", "search term")
	flags.IntVar(&opts.offset, "offset", 0, "starting offset for every region")
	flags.IntVar(&opts.limit, "limit", 20, "page size (default from SEARCH_LIMIT)")
	flags.StringVarP(&opts.file, "file", "f", "file.csv", "regions file")
	flags.StringVar(&opts.sink, "sink", "", "output sink: file or postgres (default from SINK)")
	flags.StringVar(&opts.outDir, "out-dir", "", "output directory for the file sink (default from OUTPUT_DIR)")

	return cmd
}

// applyFlags overrides config values with flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *options) error {
	flags := cmd.Flags()
	if flags.Changed("limit") {
		cfg.Search.Limit = opts.limit
	} else {
		opts.limit = cfg.Search.Limit
	}
	if flags.Changed("sink") {
		cfg.Sink.Type = opts.sink
	}
	if flags.Changed("out-dir") {
		cfg.Sink.Dir = opts.outDir
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, opts *options, logger *zap.Logger, m *metrics.Metrics) error {
	list, err := regions.ReadFile(opts.file)
	if err != nil {
		return err
	}
	logger.Info("regions loaded", zap.String("file", opts.file), zap.Int("count", len(list)))

	runID := uuid.New()

	opener, cleanup, err := newOpener(ctx, cfg, runID)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := sink.NewRegistry(opener, logger, m)
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Error("failed to close output streams", zap.Error(err))
		}
	}()

	client := yelp.New(yelp.Config{
		APIKey:  cfg.Yelp.APIKey,
		BaseURL: cfg.Yelp.BaseURL,
		Timeout: cfg.Yelp.Timeout,
	}, logger, m)

	p := partition.New(client, registry, partition.Config{
		Ceiling:  cfg.Search.Ceiling,
		MaxDepth: cfg.Search.MaxDepth,
	}, logger, m)

	var notifier service.Notifier
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(notify.Config{Token: cfg.Telegram.Token, ChatID: cfg.Telegram.ChatID}, logger)
		if err != nil {
			logger.Warn("telegram notifier disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	harvest := service.NewHarvestService(p, notifier, runID, logger, m)
	req := domain.SweepRequest{Term: opts.term, Offset: opts.offset, Limit: opts.limit}

	g, gctx := errgroup.WithContext(ctx)
	sweepCtx, sweepDone := context.WithCancel(gctx)

	g.Go(func() error {
		defer sweepDone()
		_, err := harvest.Harvest(gctx, list, req)
		return err
	})

	if cfg.Metrics.Addr != "" {
		serveMetrics(g, sweepCtx, cfg.Metrics.Addr, logger)
	}

	return g.Wait()
}

// serveMetrics runs the metrics endpoint until ctx is done.
func serveMetrics(g *errgroup.Group, ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func newOpener(ctx context.Context, cfg *config.Config, runID uuid.UUID) (sink.Opener, func(), error) {
	switch cfg.Sink.Type {
	case config.SinkPostgres:
		db, err := postgres.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		return postgres.NewSink(db.Pool, cfg.Sink.Table, runID), db.Close, nil
	case config.SinkFile:
		return file.New(file.Config{Dir: cfg.Sink.Dir, Prefix: cfg.Sink.Prefix}), func() {}, nil
	default:
		return nil, nil, config.ErrInvalidSink
	}
}
