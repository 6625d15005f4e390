package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Querier is the read surface repositories depend on. Both the traced
// pool wrapper and pgxmock satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// TracedDB wraps a connection pool with span and duration logging around
// every statement.
type TracedDB struct {
	Pool *pgxpool.Pool
}

// NewTracedDB creates a new traced database connection
func NewTracedDB(pool *pgxpool.Pool) *TracedDB {
	return &TracedDB{Pool: pool}
}

// Query executes a query with tracing.
func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := otel.Tracer("histwindow/database").Start(ctx, "db.query")
	defer span.End()
	span.SetAttributes(attribute.String("db.statement", sql))

	start := time.Now()
	rows, err := db.Pool.Query(ctx, sql, args...)
	logDuration("query", sql, time.Since(start))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return rows, err
}

// QueryRow executes a query that returns a single row.
func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := otel.Tracer("histwindow/database").Start(ctx, "db.query_row")
	defer span.End()
	span.SetAttributes(attribute.String("db.statement", sql))

	start := time.Now()
	row := db.Pool.QueryRow(ctx, sql, args...)
	logDuration("query_row", sql, time.Since(start))
	return row
}

// Exec executes a statement without returning rows.
func (db *TracedDB) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := otel.Tracer("histwindow/database").Start(ctx, "db.exec")
	defer span.End()
	span.SetAttributes(attribute.String("db.statement", sql))

	start := time.Now()
	tag, err := db.Pool.Exec(ctx, sql, arguments...)
	logDuration("exec", sql, time.Since(start))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	}
	return tag, err
}

// Ping verifies the connection to the database.
func (db *TracedDB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close closes the database connection pool
func (db *TracedDB) Close() {
	db.Pool.Close()
}

func logDuration(operation, sql string, d time.Duration) {
	logrus.WithFields(logrus.Fields{
		"operation":   operation,
		"sql":         sql,
		"duration_ms": d.Milliseconds(),
	}).Debug("database statement")
}
