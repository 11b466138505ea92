package credential

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a scanned payload cannot be decoded.
var ErrMalformed = errors.New("malformed credential payload")

const tokenBytes = 16

// NewToken returns a hex string with 16 bytes of entropy from crypto/rand.
// Token values must never derive from counters or session identity.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("credential token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Payload is the JSON document embedded in the QR image. Scanners hand it
// back verbatim as the raw payload of a verify call.
type Payload struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	IssuedAt  int64  `json:"issued_at"`
}

// Encode renders the payload as the QR document string.
func (p Payload) Encode() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode parses a raw scanned payload. Any decode failure, including
// missing fields, is ErrMalformed.
func Decode(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, ErrMalformed
	}
	if p.SessionID == "" || p.Token == "" {
		return Payload{}, ErrMalformed
	}
	return p, nil
}
