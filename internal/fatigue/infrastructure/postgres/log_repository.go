package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	fatigue "safedrive/internal/fatigue/domain"
)

// LogRepository is a Postgres repository for fatigue logs.
type LogRepository struct {
	db *sql.DB
}

// NewLogRepository constructs a repository.
func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Insert appends a fatigue log. Logs are immutable once created.
func (r *LogRepository) Insert(ctx context.Context, log *fatigue.FatigueLog) error {
	if r == nil || r.db == nil {
		return errors.New("fatigue log repo: nil db")
	}
	if log == nil {
		return errors.New("fatigue log repo: nil log")
	}
	if log.ID == "" || log.TripID == "" || log.DriverID == "" {
		return errors.New("fatigue log repo: missing fields")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	location, err := json.Marshal(log.Location)
	if err != nil {
		return err
	}
	detection := log.DetectionData
	if len(detection) == 0 {
		detection = json.RawMessage("null")
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO fatigue_logs (
	id, trip_id, driver_id, ear, mar, eye_status, yawn_detected, seatbelt_on,
	fatigue_score, accuracy, confidence_level, location, detection_data, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8,
	$9, $10, $11, $12, $13, $14
)`,
		log.ID,
		log.TripID,
		log.DriverID,
		log.EAR,
		log.MAR,
		string(log.EyeStatus),
		log.YawnDetected,
		log.SeatbeltOn,
		log.FatigueScore,
		log.Accuracy,
		log.ConfidenceLevel,
		location,
		[]byte(detection),
		log.CreatedAt,
	)
	return err
}

// CountClosedEyes counts this driver's closed-eye logs since the cutoff,
// across trips.
func (r *LogRepository) CountClosedEyes(ctx context.Context, driverID string, since time.Time) (int, error) {
	return r.countWhere(ctx, driverID, since, "eye_status = 'closed'")
}

// CountYawns counts this driver's yawn logs since the cutoff, across trips.
func (r *LogRepository) CountYawns(ctx context.Context, driverID string, since time.Time) (int, error) {
	return r.countWhere(ctx, driverID, since, "yawn_detected = TRUE")
}

func (r *LogRepository) countWhere(ctx context.Context, driverID string, since time.Time, predicate string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("fatigue log repo: nil db")
	}
	if driverID == "" {
		return 0, errors.New("fatigue log repo: driver id required")
	}
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM fatigue_logs
WHERE driver_id = $1 AND created_at >= $2 AND `+predicate, driverID, since).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListByTrip returns a trip's logs ordered by creation time.
func (r *LogRepository) ListByTrip(ctx context.Context, tripID string) ([]fatigue.FatigueLog, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fatigue log repo: nil db")
	}
	if tripID == "" {
		return nil, errors.New("fatigue log repo: trip id required")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, trip_id, driver_id, ear, mar, eye_status, yawn_detected, seatbelt_on,
	fatigue_score, accuracy, confidence_level, location, detection_data, created_at
FROM fatigue_logs
WHERE trip_id = $1
ORDER BY created_at ASC`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []fatigue.FatigueLog
	for rows.Next() {
		var (
			log       fatigue.FatigueLog
			eyeStatus string
			location  []byte
			detection []byte
		)
		if err := rows.Scan(
			&log.ID, &log.TripID, &log.DriverID, &log.EAR, &log.MAR, &eyeStatus,
			&log.YawnDetected, &log.SeatbeltOn, &log.FatigueScore, &log.Accuracy,
			&log.ConfidenceLevel, &location, &detection, &log.CreatedAt,
		); err != nil {
			return nil, err
		}
		log.EyeStatus = fatigue.EyeStatus(eyeStatus)
		if len(location) > 0 {
			if err := json.Unmarshal(location, &log.Location); err != nil {
				return nil, err
			}
		}
		if len(detection) > 0 && string(detection) != "null" {
			log.DetectionData = json.RawMessage(detection)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
