package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/store"
)

// Repository persists sessions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a session and its roster in one transaction.
func (r *Repository) Create(ctx context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Active = true

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, store.Unavailable(err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO class_sessions (id, teacher_id, subject, classroom, session_date, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, s.ID, s.TeacherID, s.Subject, s.Classroom, s.Date, s.StartTime, s.EndTime)
	if err := row.Scan(&s.CreatedAt); err != nil {
		return Session{}, store.Unavailable(err)
	}

	for _, studentID := range s.EnrolledStudents {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_enrollments (session_id, student_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, s.ID, studentID); err != nil {
			return Session{}, store.Unavailable(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Session{}, store.Unavailable(err)
	}
	return s, nil
}

// Get returns a session with its roster.
func (r *Repository) Get(ctx context.Context, id string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, subject, classroom, session_date, start_time, end_time,
		       qr_token, qr_expiry, attendance_count, active, created_at
		FROM class_sessions WHERE id = $1
	`, id)
	var s Session
	if err := row.Scan(&s.ID, &s.TeacherID, &s.Subject, &s.Classroom, &s.Date, &s.StartTime, &s.EndTime,
		&s.QRToken, &s.QRExpiry, &s.AttendanceCount, &s.Active, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, store.Unavailable(err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT student_id FROM session_enrollments WHERE session_id = $1
	`, id)
	if err != nil {
		return Session{}, store.Unavailable(err)
	}
	defer rows.Close()
	for rows.Next() {
		var studentID string
		if err := rows.Scan(&studentID); err != nil {
			return Session{}, store.Unavailable(err)
		}
		s.EnrolledStudents = append(s.EnrolledStudents, studentID)
	}
	if err := rows.Err(); err != nil {
		return Session{}, store.Unavailable(err)
	}
	return s, nil
}

// SetCredential overwrites the active credential. A racing reissue is
// last-writer-wins; the single UPDATE keeps token and expiry consistent.
func (r *Repository) SetCredential(ctx context.Context, id, token string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE class_sessions SET qr_token = $2, qr_expiry = $3 WHERE id = $1
	`, id, token, expiry)
	if err != nil {
		return store.Unavailable(err)
	}
	return notFoundOnZero(res)
}

// IncrementAttendance bumps the display counter.
func (r *Repository) IncrementAttendance(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE class_sessions SET attendance_count = attendance_count + 1 WHERE id = $1
	`, id)
	if err != nil {
		return store.Unavailable(err)
	}
	return notFoundOnZero(res)
}

// Deactivate turns a session off. Sessions are never deleted.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE class_sessions SET active = FALSE WHERE id = $1
	`, id)
	if err != nil {
		return store.Unavailable(err)
	}
	return notFoundOnZero(res)
}

func notFoundOnZero(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
