package attendance

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"classtrack/internal/credential"
	"classtrack/internal/session"
)

var verifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "classtrack_attendance_verify_total",
	Help: "Verify calls per outcome.",
}, []string{"outcome"})

// outcome counts a verify result and passes the error through unchanged.
func outcome(err error) error {
	label := "committed"
	switch {
	case err == nil:
	case errors.Is(err, credential.ErrMalformed):
		label = "malformed"
	case errors.Is(err, session.ErrNotFound):
		label = "session_not_found"
	case errors.Is(err, ErrCredentialInvalid):
		label = "credential_invalid"
	case errors.Is(err, ErrNotEnrolled):
		label = "not_enrolled"
	case errors.Is(err, ErrAlreadyMarked):
		label = "already_marked"
	default:
		label = "unavailable"
	}
	verifyTotal.WithLabelValues(label).Inc()
	return err
}
