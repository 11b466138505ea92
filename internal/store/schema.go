package store

import "context"

// schema is applied at startup. The unique index on attendance_records is
// load-bearing: duplicate submissions for the same (session, student, day)
// must be rejected by the database, not by an application-level read.
const schema = `
CREATE TABLE IF NOT EXISTS class_sessions (
	id               UUID PRIMARY KEY,
	teacher_id       TEXT NOT NULL,
	subject          TEXT NOT NULL,
	classroom        TEXT NOT NULL,
	session_date     DATE NOT NULL,
	start_time       TEXT NOT NULL,
	end_time         TEXT NOT NULL,
	qr_token         TEXT,
	qr_expiry        TIMESTAMPTZ,
	attendance_count INT NOT NULL DEFAULT 0,
	active           BOOLEAN NOT NULL DEFAULT TRUE,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS session_enrollments (
	session_id UUID NOT NULL REFERENCES class_sessions (id),
	student_id TEXT NOT NULL,
	PRIMARY KEY (session_id, student_id)
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id            UUID PRIMARY KEY,
	session_id    UUID NOT NULL REFERENCES class_sessions (id),
	student_id    TEXT NOT NULL,
	teacher_id    TEXT NOT NULL,
	subject       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'present',
	method        TEXT NOT NULL,
	location      TEXT NOT NULL,
	verified      BOOLEAN NOT NULL DEFAULT FALSE,
	check_in_time TIMESTAMPTZ NOT NULL,
	day           DATE NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS attendance_records_session_student_day
	ON attendance_records (session_id, student_id, day);
`

// EnsureSchema creates tables and indexes if they do not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}
