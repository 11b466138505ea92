package attendance

import (
	"context"
	"crypto/subtle"
	"log"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/broadcast"
	"classtrack/internal/credential"
	"classtrack/internal/session"
)

// Verifier validates scanned credentials and commits attendance records.
// Everything before the insert is read-only; the insert itself carries the
// uniqueness guarantee, so concurrent submissions for the same student
// resolve to exactly one commit.
type Verifier struct {
	sessions session.Store
	records  Store
	events   broadcast.Broadcaster
}

// NewVerifier wires the verifier to its collaborators.
func NewVerifier(sessions session.Store, records Store, events broadcast.Broadcaster) *Verifier {
	return &Verifier{sessions: sessions, records: records, events: events}
}

// Verify checks rawPayload for studentID at the provided instant and
// commits a record on success. Failure modes, in check order:
// credential.ErrMalformed, session.ErrNotFound, ErrCredentialInvalid,
// ErrNotEnrolled, ErrAlreadyMarked.
func (v *Verifier) Verify(ctx context.Context, rawPayload, studentID string, now time.Time) (Record, error) {
	payload, err := credential.Decode(rawPayload)
	if err != nil {
		return Record{}, outcome(err)
	}

	s, err := v.sessions.Get(ctx, payload.SessionID)
	if err != nil {
		return Record{}, outcome(err)
	}

	// An absent credential fails the same way as a wrong or expired one.
	if s.QRToken == nil || s.QRExpiry == nil ||
		subtle.ConstantTimeCompare([]byte(*s.QRToken), []byte(payload.Token)) != 1 ||
		now.After(*s.QRExpiry) {
		return Record{}, outcome(ErrCredentialInvalid)
	}

	if !s.IsEnrolled(studentID) {
		return Record{}, outcome(ErrNotEnrolled)
	}

	rec := Record{
		ID:          uuid.NewString(),
		SessionID:   s.ID,
		StudentID:   studentID,
		TeacherID:   s.TeacherID,
		Subject:     s.Subject,
		Status:      StatusPresent,
		Method:      MethodQRCode,
		Location:    s.Classroom,
		Verified:    true,
		CheckInTime: now,
		Day:         Day(now),
	}
	rec, err = v.records.Insert(ctx, rec)
	if err != nil {
		return Record{}, outcome(err)
	}

	// The counter is a display aggregate; a failed increment leaves it
	// stale, never the record.
	if err := v.sessions.IncrementAttendance(ctx, s.ID); err != nil {
		log.Printf("attendance: increment counter for session %s failed: %v", s.ID, err)
	}

	evt, err := broadcast.NewEvent(broadcast.EventAttendanceCommitted, map[string]any{
		"student_id": studentID,
		"timestamp":  rec.CheckInTime,
	})
	if err == nil {
		err = v.events.Publish(ctx, s.ID, evt)
	}
	if err != nil {
		log.Printf("attendance: publish commit event for %s failed: %v", s.ID, err)
	}

	return rec, outcome(nil)
}
