// Package datastore executes read-only analytical statements against the warehouse.
package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/viant/bigquery" // registers the "bigquery" database/sql driver
	"go.uber.org/zap"

	"github.com/capitalize-ai/flightstats-assistant/pkg/logger"
	"github.com/capitalize-ai/flightstats-assistant/pkg/metrics"
)

// DriverName is the database/sql driver used for the warehouse.
const DriverName = "bigquery"

// Row is one result record keyed by column name.
type Row map[string]any

// Querier is the subset of *sql.DB the store needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store runs guarded read-only statements. It is safe for concurrent use.
type Store struct {
	db      Querier
	timeout time.Duration
	logger  *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout bounds each query. Zero leaves queries bounded only by the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// New wraps an open database handle.
func New(db Querier, log *logger.Logger, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("datastore: db must not be nil")
	}
	if log == nil {
		log = logger.NewNop()
	}
	s := &Store{db: db, logger: log}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open connects to the warehouse with a DSN such as bigquery://project/dataset.
func Open(ctx context.Context, dsn string, log *logger.Logger, opts ...Option) (*Store, *sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("datastore: open: %w", err)
	}
	store, err := New(db, log, opts...)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// Query executes stmt after the denylist guard and returns rows in result order.
// Rejected statements never reach the database. A logger carried by ctx takes
// precedence over the store's own.
func (s *Store) Query(ctx context.Context, stmt string) ([]Row, error) {
	log := logger.FromContext(ctx, s.logger)

	if err := Guard(stmt); err != nil {
		var ge *GuardError
		if errors.As(err, &ge) {
			metrics.QueryRejectionsTotal.WithLabelValues(ge.Keyword).Inc()
		}
		log.Warn("statement rejected by read-only guard", zap.Error(err))
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := s.query(ctx, stmt)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordQuery("error", elapsed.Seconds())
		log.Error("query failed", zap.Error(err), zap.Duration("duration", elapsed))
		return nil, err
	}

	metrics.RecordQuery("ok", elapsed.Seconds())
	log.Debug("query completed", zap.Int("rows", len(rows)), zap.Duration("duration", elapsed))
	return rows, nil
}

func (s *Store) query(ctx context.Context, stmt string) ([]Row, error) {
	rs, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("datastore: query: %w", err)
	}
	defer rs.Close()

	columns, err := rs.Columns()
	if err != nil {
		return nil, fmt.Errorf("datastore: columns: %w", err)
	}

	out := make([]Row, 0)
	for rs.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("datastore: scan: %w", err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i])
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("datastore: rows: %w", err)
	}
	return out, nil
}

// normalize turns driver byte slices into strings so rows serialize as readable JSON.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
