package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertAlertSQL = `INSERT INTO fired_alerts (
        alert_id,
        query_id,
        value,
        previous_value,
        urgency,
        fired_at,
        delivered
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING id, alert_id, query_id, value, previous_value, urgency, fired_at, delivered, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        alert_id,
        query_id,
        value,
        previous_value,
        urgency,
        fired_at,
        delivered,
        created_at
    FROM fired_alerts
    ORDER BY fired_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM fired_alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AlertLogStore persists fired-alert audit records.
type AlertLogStore interface {
	InsertAlert(ctx context.Context, record AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// AdvisoryLocker guards against two pollers ticking concurrently.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store wraps a pgx pool with the repository methods.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store over an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return ErrNotConfigured
	}
	return s.pool.Ping(ctx)
}

// InsertAlert writes one audit record and returns it with generated fields.
func (s *Store) InsertAlert(ctx context.Context, record AlertRecord) (AlertRecord, error) {
	if s.pool == nil {
		return AlertRecord{}, ErrNotConfigured
	}

	row := s.pool.QueryRow(ctx, insertAlertSQL,
		record.AlertID,
		record.QueryID,
		record.Value,
		record.Previous,
		record.Urgency,
		record.FiredAt,
		record.Delivered,
	)
	return scanAlertRecord(row)
}

// ListRecentAlerts returns the newest audit records, newest first.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	if s.pool == nil {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, listRecentAlertsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AlertRecord
	for rows.Next() {
		record, err := scanAlertRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteAlertsBefore prunes audit records older than the cutoff.
func (s *Store) DeleteAlertsBefore(ctx context.Context, cutoff time.Time) error {
	if s.pool == nil {
		return ErrNotConfigured
	}
	_, err := s.pool.Exec(ctx, deleteAlertsBeforeSQL, cutoff)
	return err
}

// TryAdvisoryLock attempts a session advisory lock; the returned unlock must
// be called when acquired.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	if s.pool == nil {
		return nil, false, ErrNotConfigured
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, err
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		defer conn.Release()
		var released bool
		_ = conn.QueryRow(context.Background(), advisoryUnlockSQL, key).Scan(&released)
	}
	return unlock, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlertRecord(row rowScanner) (AlertRecord, error) {
	var record AlertRecord
	err := row.Scan(
		&record.ID,
		&record.AlertID,
		&record.QueryID,
		&record.Value,
		&record.Previous,
		&record.Urgency,
		&record.FiredAt,
		&record.Delivered,
		&record.CreatedAt,
	)
	return record, err
}

var _ AlertLogStore = (*Store)(nil)
var _ AdvisoryLocker = (*Store)(nil)
