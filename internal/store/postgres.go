// Package store exports normalized tables to PostgreSQL.
//
// A table is written in one transaction: an optional DROP, a CREATE TABLE IF
// NOT EXISTS derived from the column kinds, then a COPY of every row. Missing
// cells are sent as NULL because the columns hold pgtype values directly.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/ratingprep/internal/config"
	"github.com/JonMunkholm/ratingprep/internal/core"
	"github.com/JonMunkholm/ratingprep/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoDatabase is returned when an export is requested without DATABASE_URL.
var ErrNoDatabase = errors.New("database url is not configured")

// Connect opens a pool using the database settings and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, ErrNoDatabase
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Exporter copies tables into Postgres.
type Exporter struct {
	pool *pgxpool.Pool
}

// NewExporter creates an exporter over pool.
func NewExporter(pool *pgxpool.Pool) *Exporter {
	return &Exporter{pool: pool}
}

// SQLType returns the Postgres column type used for a column kind.
func SQLType(k core.Kind) string {
	switch k {
	case core.KindDate:
		return "timestamp"
	case core.KindFloat:
		return "double precision"
	case core.KindNullableInt:
		return "bigint"
	case core.KindBinaryInt:
		return "smallint"
	default:
		return "text"
	}
}

// CreateTableSQL builds the CREATE TABLE statement for t. table may be
// schema-qualified ("staging.rating").
func CreateTableSQL(table string, t *core.Table) (string, error) {
	ident, err := tableIdent(table)
	if err != nil {
		return "", err
	}
	if t.Width() == 0 {
		return "", fmt.Errorf("table %s has no columns", table)
	}

	defs := make([]string, 0, t.Width())
	for _, col := range t.Columns() {
		defs = append(defs, fmt.Sprintf("%s %s", pgx.Identifier{col.Name}.Sanitize(), SQLType(col.Kind)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)",
		ident.Sanitize(), strings.Join(defs, ",\n  ")), nil
}

// Export writes t into table and returns the number of rows copied. When
// replace is set an existing table is dropped first.
func (e *Exporter) Export(ctx context.Context, table string, t *core.Table, replace bool) (int64, error) {
	logger := logging.FromContext(ctx)
	start := time.Now()

	ident, err := tableIdent(table)
	if err != nil {
		return 0, err
	}
	createSQL, err := CreateTableSQL(table, t)
	if err != nil {
		return 0, err
	}

	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if replace {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
			return 0, fmt.Errorf("drop %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}

	n, err := tx.CopyFrom(ctx, ident, t.Header(), NewCopySource(ctx, t))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	logger.Info("table exported",
		"table", table,
		"rows", n,
		"columns", t.Width(),
		"replace", replace,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return n, nil
}

func tableIdent(table string) (pgx.Identifier, error) {
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts), nil
}

// CopySource adapts a Table to pgx.CopyFromSource.
type CopySource struct {
	ctx  context.Context
	cols []*core.Column
	rows int
	row  int
	err  error
}

// NewCopySource iterates the rows of t. Cancellation of ctx stops the copy.
func NewCopySource(ctx context.Context, t *core.Table) *CopySource {
	return &CopySource{ctx: ctx, cols: t.Columns(), rows: t.Len(), row: -1}
}

// Next advances to the next row.
func (s *CopySource) Next() bool {
	if s.err != nil {
		return false
	}
	s.row++
	if s.row >= s.rows {
		return false
	}
	if s.row%core.ContextCheckInterval == 0 {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return false
		}
	}
	return true
}

// Values returns the pgtype values of the current row.
func (s *CopySource) Values() ([]any, error) {
	vals := make([]any, len(s.cols))
	for i, c := range s.cols {
		vals[i] = c.PgValue(s.row)
	}
	return vals, nil
}

// Err returns the error that stopped iteration, if any.
func (s *CopySource) Err() error {
	return s.err
}

var _ pgx.CopyFromSource = (*CopySource)(nil)
