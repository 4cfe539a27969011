package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	fatigue "safedrive/internal/fatigue/domain"
)

// AlertRepository is a Postgres repository for alerts.
type AlertRepository struct {
	db *sql.DB
}

// NewAlertRepository constructs a repository.
func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts a new alert.
func (r *AlertRepository) Create(ctx context.Context, alert *fatigue.Alert) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if alert == nil {
		return errors.New("alert repo: nil alert")
	}
	if alert.ID == "" || alert.DriverID == "" || alert.TripID == "" {
		return errors.New("alert repo: missing fields")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO alerts (
	id, driver_id, trip_id, type, severity, message, metadata,
	acknowledged, acknowledged_at, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10
)`,
		alert.ID,
		alert.DriverID,
		alert.TripID,
		string(alert.Type),
		string(alert.Severity),
		alert.Message,
		[]byte(alert.Metadata),
		alert.Acknowledged,
		nullableTime(alert.AcknowledgedAt),
		alert.CreatedAt,
	)
	return err
}

// GetByID fetches an alert by id.
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*fatigue.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, driver_id, trip_id, type, severity, message, metadata,
	acknowledged, acknowledged_at, created_at
FROM alerts
WHERE id = $1`, id)
	return scanAlert(row)
}

// List returns alerts matching the filter, newest first.
func (r *AlertRepository) List(ctx context.Context, filter fatigue.AlertFilter) ([]fatigue.Alert, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if filter.DriverID == "" {
		return nil, errors.New("alert repo: driver id required")
	}

	query := `
SELECT id, driver_id, trip_id, type, severity, message, metadata,
	acknowledged, acknowledged_at, created_at
FROM alerts
WHERE driver_id = $1`
	args := []any{filter.DriverID}

	if filter.TripID != "" {
		args = append(args, filter.TripID)
		query += ` AND trip_id = $` + itoa(len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += ` AND type = $` + itoa(len(args))
	}
	if filter.Acknowledged != nil {
		args = append(args, *filter.Acknowledged)
		query += ` AND acknowledged = $` + itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += ` AND created_at >= $` + itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += ` AND created_at < $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []fatigue.Alert
	for rows.Next() {
		alert, err := scanAlertRow(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

// MarkAcknowledged records an operator acknowledgement.
func (r *AlertRepository) MarkAcknowledged(ctx context.Context, id string, ackedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE alerts
SET acknowledged = TRUE, acknowledged_at = $1
WHERE id = $2`, ackedAt, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fatigue.ErrAlertNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row *sql.Row) (*fatigue.Alert, error) {
	alert, err := scanAlertRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return alert, err
}

func scanAlertRow(row rowScanner) (*fatigue.Alert, error) {
	var (
		alert     fatigue.Alert
		alertType string
		severity  string
		metadata  []byte
		ackedAt   sql.NullTime
	)
	if err := row.Scan(
		&alert.ID, &alert.DriverID, &alert.TripID, &alertType, &severity,
		&alert.Message, &metadata, &alert.Acknowledged, &ackedAt, &alert.CreatedAt,
	); err != nil {
		return nil, err
	}
	alert.Type = fatigue.AlertType(alertType)
	alert.Severity = fatigue.Severity(severity)
	alert.Metadata = metadata
	if ackedAt.Valid {
		alert.AcknowledgedAt = ackedAt.Time
	}
	return &alert, nil
}

func nullableTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
