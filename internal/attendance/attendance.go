package attendance

import (
	"context"
	"errors"
	"time"
)

// Statuses for an attendance record. QR-verified commits are always
// recorded as present; lateness handling lives outside this core.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

// Verification methods. Face recognition is an accepted enum value but has
// no verifier implementation.
const (
	MethodQRCode          = "qr-code"
	MethodFaceRecognition = "face-recognition"
	MethodManual          = "manual"
)

var (
	// ErrCredentialInvalid covers token mismatch, elapsed expiry, and the
	// no-credential-issued-yet case alike.
	ErrCredentialInvalid = errors.New("qr code has expired or is invalid")
	// ErrNotEnrolled is returned when the student is not on the roster.
	ErrNotEnrolled = errors.New("not enrolled in this class")
	// ErrAlreadyMarked is returned on a duplicate submission for the same
	// session, student, and day. The duplicate is an error, not a silent
	// success, so callers can tell a fresh commit from a replay.
	ErrAlreadyMarked = errors.New("attendance already marked today")
)

// Record is a committed attendance entry. TeacherID is copied from the
// session at commit time so the audit trail survives later ownership
// changes. Records are never mutated or deleted here.
type Record struct {
	ID          string
	SessionID   string
	StudentID   string
	TeacherID   string
	Subject     string
	Status      string
	Method      string
	Location    string
	Verified    bool
	CheckInTime time.Time
	Day         time.Time
	CreatedAt   time.Time
}

// Filter narrows a record listing.
type Filter struct {
	From    time.Time
	To      time.Time
	Subject string
}

// Store persists attendance records. Insert must enforce uniqueness per
// (session, student, day) atomically and report conflicts as
// ErrAlreadyMarked; check-then-insert across two calls is not acceptable.
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context, studentID string, f Filter) ([]Record, error)
}

// Stats summarizes a record listing for display.
type Stats struct {
	TotalClasses   int     `json:"total_classes"`
	PresentClasses int     `json:"present_classes"`
	AbsentClasses  int     `json:"absent_classes"`
	Percentage     float64 `json:"attendance_percentage"`
}

// Summarize computes display statistics over records.
func Summarize(records []Record) Stats {
	st := Stats{TotalClasses: len(records)}
	for _, rec := range records {
		if rec.Status == StatusPresent {
			st.PresentClasses++
		}
	}
	st.AbsentClasses = st.TotalClasses - st.PresentClasses
	if st.TotalClasses > 0 {
		st.Percentage = float64(st.PresentClasses) / float64(st.TotalClasses) * 100
	}
	return st
}

// Day truncates a timestamp to the UTC calendar date used by the
// uniqueness rule.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
