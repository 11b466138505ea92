package credential

import (
	"context"
	"errors"
	"log"
	"time"

	"classtrack/internal/broadcast"
	"classtrack/internal/session"
)

// ErrForbidden is returned when the requesting teacher does not own the
// session.
var ErrForbidden = errors.New("not authorized to issue for this session")

// Issued is the result of a successful issuance.
type Issued struct {
	Token     string
	ExpiresAt time.Time
	QRDataURL string
}

// Issuer mints single-use, time-bounded credentials. It is the only writer
// of a session's credential fields.
type Issuer struct {
	sessions session.Store
	events   broadcast.Broadcaster
	window   time.Duration
	now      func() time.Time
}

// NewIssuer creates an issuer with the given validity window.
func NewIssuer(sessions session.Store, events broadcast.Broadcaster, window time.Duration) *Issuer {
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &Issuer{sessions: sessions, events: events, window: window, now: time.Now}
}

// Issue generates a fresh credential for the session and stores it,
// overwriting any prior one. The prior credential stops verifying
// immediately, even if its expiry has not elapsed. Concurrent issuance is
// last-writer-wins by registry overwrite.
func (i *Issuer) Issue(ctx context.Context, sessionID, teacherID string) (Issued, error) {
	s, err := i.sessions.Get(ctx, sessionID)
	if err != nil {
		return Issued{}, err
	}
	if !s.Active {
		return Issued{}, session.ErrNotFound
	}
	if s.TeacherID != teacherID {
		return Issued{}, ErrForbidden
	}

	token, err := NewToken()
	if err != nil {
		return Issued{}, err
	}
	issuedAt := i.now().UTC()
	expiry := issuedAt.Add(i.window)

	document, err := Payload{SessionID: s.ID, Token: token, IssuedAt: issuedAt.UnixMilli()}.Encode()
	if err != nil {
		return Issued{}, err
	}
	dataURL, err := DataURL(document)
	if err != nil {
		return Issued{}, err
	}

	if err := i.sessions.SetCredential(ctx, s.ID, token, expiry); err != nil {
		return Issued{}, err
	}

	evt, err := broadcast.NewEvent(broadcast.EventCredentialIssued, map[string]any{
		"qr_code":     dataURL,
		"expiry_time": expiry,
	})
	if err == nil {
		err = i.events.Publish(ctx, s.ID, evt)
	}
	if err != nil {
		// Events are advisory; the credential is already committed.
		log.Printf("credential: publish issuance event for %s failed: %v", s.ID, err)
	}

	return Issued{Token: token, ExpiresAt: expiry, QRDataURL: dataURL}, nil
}
