// Package postgres stores sweep rows in a single table tagged by term and run.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kitbuilder587/yelp-sweep/internal/domain"
	"github.com/kitbuilder587/yelp-sweep/internal/sink"
)

const DefaultTable = "business_results"

type pgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

type Sink struct {
	pool  pgxIface
	table string
	runID uuid.UUID
}

func NewSink(pool pgxIface, table string, runID uuid.UUID) *Sink {
	if table == "" {
		table = DefaultTable
	}
	return &Sink{pool: pool, table: table, runID: runID}
}

func (s *Sink) Open(ctx context.Context, term string) (sink.Stream, error) {
	return &stream{sink: s, term: term}, nil
}

type stream struct {
	sink    *Sink
	term    string
	columns []string
}

// HasHeader is false: the "header" of a table stream is its idempotent DDL.
func (st *stream) HasHeader() bool {
	return false
}

func (st *stream) WriteHeader(ctx context.Context, header []string) error {
	defs := make([]string, 0, len(header))
	for _, col := range header {
		defs = append(defs, pgx.Identifier{col}.Sanitize()+" TEXT NOT NULL DEFAULT ''")
	}

	ddl := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id BIGSERIAL PRIMARY KEY,
            term TEXT NOT NULL,
            run_id UUID NOT NULL,
            %s,
            fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `, pgx.Identifier{st.sink.table}.Sanitize(), strings.Join(defs, ",\n            "))

	if _, err := st.sink.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	st.columns = append([]string{"term", "run_id"}, header...)
	return nil
}

func (st *stream) WriteRows(ctx context.Context, rows []domain.Business) error {
	if st.columns == nil {
		st.columns = append([]string{"term", "run_id"}, domain.Header()...)
	}

	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		rec := rows[i].Record()
		values := make([]any, 0, len(rec)+2)
		values = append(values, st.term, st.sink.runID)
		for _, v := range rec {
			values = append(values, v)
		}
		return values, nil
	})

	n, err := st.sink.pool.CopyFrom(ctx, pgx.Identifier{st.sink.table}, st.columns, src)
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copy rows: wrote %d of %d", n, len(rows))
	}
	return nil
}

func (st *stream) Close() error {
	return nil
}
