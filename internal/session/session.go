package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("class session not found")

// Session represents a single scheduled class meeting with a fixed roster.
// Credential fields are overwritten as a unit on reissue; at most one
// credential is ever active. The attendance counter is a display aggregate,
// not a source of truth.
type Session struct {
	ID               string
	TeacherID        string
	Subject          string
	Classroom        string
	Date             time.Time
	StartTime        string
	EndTime          string
	EnrolledStudents []string
	QRToken          *string
	QRExpiry         *time.Time
	AttendanceCount  int
	Active           bool
	CreatedAt        time.Time
}

// IsEnrolled reports roster membership. Ordering of the roster carries no
// meaning.
func (s *Session) IsEnrolled(studentID string) bool {
	for _, id := range s.EnrolledStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// Store persists class sessions. Callers are responsible for authorization;
// the store only guarantees that credential overwrite and counter increment
// are atomic per session.
type Store interface {
	Create(ctx context.Context, s Session) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	SetCredential(ctx context.Context, id, token string, expiry time.Time) error
	IncrementAttendance(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}
