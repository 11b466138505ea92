package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"classtrack/internal/store"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert commits a record. The ON CONFLICT clause rides the unique index on
// (session_id, student_id, day), so a racing duplicate loses at the
// database and surfaces as ErrAlreadyMarked here.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(id, session_id, student_id, teacher_id, subject, status, method, location, verified, check_in_time, day)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (session_id, student_id, day) DO NOTHING
		RETURNING created_at
	`, rec.ID, rec.SessionID, rec.StudentID, rec.TeacherID, rec.Subject, rec.Status,
		rec.Method, rec.Location, rec.Verified, rec.CheckInTime, rec.Day)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrAlreadyMarked
		}
		return Record{}, store.Unavailable(err)
	}
	return rec, nil
}

// List returns a student's records, newest first, with basic filters.
func (r *Repository) List(ctx context.Context, studentID string, f Filter) ([]Record, error) {
	query := `
		SELECT id, session_id, student_id, teacher_id, subject, status, method, location, verified, check_in_time, day, created_at
		FROM attendance_records
		WHERE student_id = $1`
	args := []any{studentID}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += " AND day >= $" + itoa(len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += " AND day <= $" + itoa(len(args))
	}
	if f.Subject != "" {
		args = append(args, f.Subject)
		query += " AND subject = $" + itoa(len(args))
	}
	query += " ORDER BY check_in_time DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Unavailable(err)
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentID, &rec.TeacherID, &rec.Subject,
			&rec.Status, &rec.Method, &rec.Location, &rec.Verified, &rec.CheckInTime, &rec.Day, &rec.CreatedAt); err != nil {
			return nil, store.Unavailable(err)
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Unavailable(err)
	}
	return res, nil
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }
