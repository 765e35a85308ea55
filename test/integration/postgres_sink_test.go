package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
	"github.com/kitbuilder587/yelp-sweep/internal/partition"
	"github.com/kitbuilder587/yelp-sweep/internal/search"
	"github.com/kitbuilder587/yelp-sweep/internal/search/mock"
	"github.com/kitbuilder587/yelp-sweep/internal/sink"
	pgSink "github.com/kitbuilder587/yelp-sweep/internal/sink/postgres"
)

var testDB *pgSink.DB

func TestMain(m *testing.M) {
	if os.Getenv("SHORT_TESTS") == "1" {
		os.Exit(0)
	}

	ctx := context.Background()

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		panic(err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	testDB, err = pgSink.New(ctx, connStr)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	testDB.Close()
	pgContainer.Terminate(ctx)

	os.Exit(code)
}

func countRows(t *testing.T, table, term string, runID uuid.UUID) int {
	t.Helper()
	var n int
	err := testDB.Pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM "+table+" WHERE term = $1 AND run_id = $2", term, runID,
	).Scan(&n)
	if err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func TestPostgresSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	runID := uuid.New()
	reg := sink.NewRegistry(pgSink.NewSink(testDB.Pool, "sink_results", runID), zap.NewNop(), nil)

	rows := []domain.Business{
		{ID: "a", Name: "Alpha", Rating: "4.5", ReviewCount: "10", Latitude: "10.1", Longitude: "-9.5"},
		{ID: "b", Name: "Beta", Rating: "3", ReviewCount: "2"},
	}

	if err := reg.Append(ctx, "pizza", domain.Header(), rows); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := reg.Append(ctx, "pizza", domain.Header(), rows[:1]); err != nil {
		t.Fatalf("Append() second page error = %v", err)
	}
	if err := reg.Append(ctx, "sushi", domain.Header(), rows[1:]); err != nil {
		t.Fatalf("Append() other term error = %v", err)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := countRows(t, "sink_results", "pizza", runID); got != 3 {
		t.Errorf("pizza rows = %d, want 3", got)
	}
	if got := countRows(t, "sink_results", "sushi", runID); got != 1 {
		t.Errorf("sushi rows = %d, want 1", got)
	}

	var name, lat, closed string
	err := testDB.Pool.QueryRow(ctx,
		"SELECT name, latitude, is_closed FROM sink_results WHERE business_id = 'a' AND run_id = $1 LIMIT 1", runID,
	).Scan(&name, &lat, &closed)
	if err != nil {
		t.Fatalf("select row: %v", err)
	}
	if name != "Alpha" || lat != "10.1" || closed != "" {
		t.Errorf("row = (%q, %q, %q), want (Alpha, 10.1, \"\")", name, lat, closed)
	}
}

func TestPartitionerToPostgres_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	runID := uuid.New()
	region := domain.Region{ID: "g1", SWLat: 10, SWLon: -10, NELat: 11, NELon: -9}
	parent := region.Bounds()

	client := mock.New().WithHandler(func(req search.Request) (*search.Response, error) {
		if req.Bounds == parent {
			return &search.Response{Total: 2500}, nil
		}
		return &search.Response{Total: 1, Businesses: mock.Businesses(req.Bounds)}, nil
	})

	reg := sink.NewRegistry(pgSink.NewSink(testDB.Pool, "", runID), zap.NewNop(), nil)
	p := partition.New(client, reg, partition.Config{}, zap.NewNop(), nil)

	stats, err := p.Run(ctx, region, domain.SweepRequest{Term: "dinner", Limit: 20})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if stats.Rows != 2 {
		t.Errorf("stats.Rows = %d, want 2", stats.Rows)
	}
	if got := countRows(t, pgSink.DefaultTable, "dinner", runID); got != 2 {
		t.Errorf("dinner rows = %d, want 2", got)
	}
}
