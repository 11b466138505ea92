package credential_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"classtrack/internal/broadcast"
	"classtrack/internal/credential"
	"classtrack/internal/session"
)

func setup(t *testing.T) (*session.MemoryStore, *broadcast.Memory, *credential.Issuer, session.Session) {
	t.Helper()
	sessions := session.NewMemoryStore()
	caster := broadcast.NewMemory()
	issuer := credential.NewIssuer(sessions, caster, 10*time.Minute)

	s, err := sessions.Create(context.Background(), session.Session{
		TeacherID:        "teacher-1",
		Subject:          "Algorithms",
		Classroom:        "B204",
		Date:             time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:        "09:00",
		EndTime:          "10:30",
		EnrolledStudents: []string{"stu-1"},
	})
	require.NoError(t, err)
	return sessions, caster, issuer, s
}

func TestIssueStoresCredential(t *testing.T) {
	ctx := context.Background()
	sessions, _, issuer, s := setup(t)

	before := time.Now()
	issued, err := issuer.Issue(ctx, s.ID, "teacher-1")
	require.NoError(t, err)
	require.Len(t, issued.Token, 32)
	require.Contains(t, issued.QRDataURL, "data:image/png;base64,")

	// Expiry lands one window after issuance.
	require.WithinDuration(t, before.Add(10*time.Minute), issued.ExpiresAt, 5*time.Second)

	got, err := sessions.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.QRToken)
	require.Equal(t, issued.Token, *got.QRToken)
	require.NotNil(t, got.QRExpiry)
	require.True(t, got.QRExpiry.Equal(issued.ExpiresAt))
}

func TestIssueForbiddenForNonOwner(t *testing.T) {
	ctx := context.Background()
	sessions, _, issuer, s := setup(t)

	_, err := issuer.Issue(ctx, s.ID, "teacher-2")
	require.ErrorIs(t, err, credential.ErrForbidden)

	// No credential leaked into the registry.
	got, err := sessions.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Nil(t, got.QRToken)
}

func TestIssueUnknownSession(t *testing.T) {
	_, _, issuer, _ := setup(t)
	_, err := issuer.Issue(context.Background(), "nope", "teacher-1")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestIssueInactiveSession(t *testing.T) {
	ctx := context.Background()
	sessions, _, issuer, s := setup(t)
	require.NoError(t, sessions.Deactivate(ctx, s.ID))

	_, err := issuer.Issue(ctx, s.ID, "teacher-1")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestReissueOverwritesPriorCredential(t *testing.T) {
	ctx := context.Background()
	sessions, _, issuer, s := setup(t)

	first, err := issuer.Issue(ctx, s.ID, "teacher-1")
	require.NoError(t, err)
	second, err := issuer.Issue(ctx, s.ID, "teacher-1")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	got, err := sessions.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, second.Token, *got.QRToken)
}

func TestIssuePublishesEvent(t *testing.T) {
	ctx := context.Background()
	_, caster, issuer, s := setup(t)

	events, cancel, err := caster.Subscribe(ctx, s.ID)
	require.NoError(t, err)
	defer cancel()

	issued, err := issuer.Issue(ctx, s.ID, "teacher-1")
	require.NoError(t, err)

	select {
	case evt := <-events:
		require.Equal(t, broadcast.EventCredentialIssued, evt.Name)
		var payload struct {
			QRCode     string    `json:"qr_code"`
			ExpiryTime time.Time `json:"expiry_time"`
		}
		require.NoError(t, json.Unmarshal(evt.Payload, &payload))
		require.Equal(t, issued.QRDataURL, payload.QRCode)
		require.True(t, payload.ExpiryTime.Equal(issued.ExpiresAt))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for issuance event")
	}
}
