package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stockpulse/lib-core/eventstore"
	"github.com/stockpulse/lib-core/log"
)

// uniqueViolation is the PostgreSQL error code raised when two appends race
// past the head check and collide on the (aggregate_id, version) index.
const uniqueViolation = "23505"

var (
	// ErrConnectionRequired indicates a nil database handle.
	ErrConnectionRequired = errors.New("eventstore/postgres: database connection is required")

	// ErrLoggerRequired indicates a nil logger.
	ErrLoggerRequired = errors.New("eventstore/postgres: logger is required")
)

// Repository is the PostgreSQL implementation of eventstore.Store.
type Repository struct {
	db     *sql.DB
	logger log.Logger
	now    func() time.Time
}

var _ eventstore.Store = (*Repository)(nil)

// NewRepository creates a Repository over an open database handle.
func NewRepository(db *sql.DB, logger log.Logger) (*Repository, error) {
	if db == nil {
		return nil, ErrConnectionRequired
	}

	if logger == nil {
		return nil, ErrLoggerRequired
	}

	return &Repository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Append implements eventstore.Store. The head check and the insert run in
// one transaction; the unique (aggregate_id, version) constraint is the
// backstop for writers racing past the check.
func (r *Repository) Append(ctx context.Context, aggregateID, eventType string, payload []byte, expectedVersion int64) (*eventstore.Record, error) {
	if err := eventstore.ValidateAppend(aggregateID, eventType, payload); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	var head int64

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM stock_events WHERE aggregate_id = $1`,
		aggregateID,
	).Scan(&head)
	if err != nil {
		return nil, fmt.Errorf("read head version for %q: %w", aggregateID, err)
	}

	if expectedVersion != head {
		return nil, &eventstore.VersionConflictError{
			AggregateID: aggregateID,
			Expected:    expectedVersion,
			Actual:      head,
		}
	}

	record := &eventstore.Record{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		Version:     head + 1,
		EventType:   eventType,
		Payload:     append([]byte(nil), payload...),
		RecordedAt:  r.now().UTC(),
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO stock_events (id, aggregate_id, version, event_type, payload, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.AggregateID, record.Version, record.EventType, record.Payload, record.RecordedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, r.conflictAt(ctx, aggregateID, expectedVersion)
		}

		return nil, fmt.Errorf("insert event for %q: %w", aggregateID, err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, r.conflictAt(ctx, aggregateID, expectedVersion)
		}

		return nil, fmt.Errorf("commit append for %q: %w", aggregateID, err)
	}

	return record, nil
}

// Load implements eventstore.Store.
func (r *Repository) Load(ctx context.Context, aggregateID string) ([]*eventstore.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, version, event_type, payload, recorded_at
		 FROM stock_events
		 WHERE aggregate_id = $1
		 ORDER BY version`,
		aggregateID,
	)
	if err != nil {
		return nil, fmt.Errorf("load events for %q: %w", aggregateID, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var records []*eventstore.Record

	for rows.Next() {
		record := &eventstore.Record{}

		err := rows.Scan(
			&record.ID,
			&record.AggregateID,
			&record.Version,
			&record.EventType,
			&record.Payload,
			&record.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event for %q: %w", aggregateID, err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events for %q: %w", aggregateID, err)
	}

	return records, nil
}

// CurrentVersion implements eventstore.Store.
func (r *Repository) CurrentVersion(ctx context.Context, aggregateID string) (int64, error) {
	var head int64

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM stock_events WHERE aggregate_id = $1`,
		aggregateID,
	).Scan(&head)
	if err != nil {
		return 0, fmt.Errorf("read head version for %q: %w", aggregateID, err)
	}

	return head, nil
}

// conflictAt rebuilds a VersionConflictError with the actual head after a
// constraint collision. When even the re-read fails, the conflict is still
// reported; the actual version is simply unknown.
func (r *Repository) conflictAt(ctx context.Context, aggregateID string, expected int64) error {
	actual, err := r.CurrentVersion(ctx, aggregateID)
	if err != nil {
		r.logger.Warnf("Could not re-read head version for %q after conflict: %v", aggregateID, err)
		actual = -1
	}

	return &eventstore.VersionConflictError{
		AggregateID: aggregateID,
		Expected:    expected,
		Actual:      actual,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
