package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"attendance-backend/attendance"
	"attendance-backend/geo"
	"attendance-backend/models"
)

const attendanceColumns = `id, user_id, check_in_time, check_in_latitude, check_in_longitude,
	check_out_time, check_out_latitude, check_out_longitude`

func (p *Postgres) InsertRecord(ctx context.Context, rec models.AttendanceRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	query := `
		INSERT INTO attendance (id, user_id, check_in_time, check_in_latitude, check_in_longitude)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id uuid.UUID
	err := p.db.QueryRow(ctx, query,
		rec.ID,
		rec.UserID,
		rec.CheckInTime,
		rec.CheckInLatitude,
		rec.CheckInLongitude,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, attendance.ErrDuplicateOpenRecord
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (p *Postgres) CloseRecord(ctx context.Context, id uuid.UUID, at time.Time, pos geo.Position) error {
	query := `
		UPDATE attendance
		SET check_out_time = $1, check_out_latitude = $2, check_out_longitude = $3
		WHERE id = $4 AND check_out_time IS NULL
	`

	tag, err := p.db.Exec(ctx, query, at, pos.Latitude, pos.Longitude, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrNoOpenRecord
	}
	return nil
}

func (p *Postgres) FindOpenRecord(ctx context.Context, userID uuid.UUID) (*models.AttendanceRecord, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance
		WHERE user_id = $1 AND check_out_time IS NULL
		ORDER BY check_in_time DESC
		LIMIT 1
	`

	rec, err := scanRecord(p.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (p *Postgres) FindRecordsForDay(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.AttendanceRecord, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendance
		WHERE user_id = $1 AND check_in_time >= $2 AND check_in_time < $3
		ORDER BY check_in_time ASC
	`

	rows, err := p.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CheckInTime,
		&rec.CheckInLatitude,
		&rec.CheckInLongitude,
		&rec.CheckOutTime,
		&rec.CheckOutLatitude,
		&rec.CheckOutLongitude,
	)
	return rec, err
}
