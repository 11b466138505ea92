package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"classtrack/internal/auth"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := auth.Issue("teacher-1", auth.RoleTeacher, "classtrack", "secret", time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := auth.Parse(pair.AccessToken, "secret", "classtrack")
	require.NoError(t, err)
	require.Equal(t, "teacher-1", claims.Subject)
	require.Equal(t, auth.RoleTeacher, claims.Role)
}

func TestParseWrongKey(t *testing.T) {
	pair, err := auth.Issue("stu-1", auth.RoleStudent, "classtrack", "secret", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = auth.Parse(pair.AccessToken, "other-secret", "classtrack")
	require.Error(t, err)
}

func TestParseIssuerMismatch(t *testing.T) {
	pair, err := auth.Issue("stu-1", auth.RoleStudent, "someone-else", "secret", time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = auth.Parse(pair.AccessToken, "secret", "classtrack")
	require.Error(t, err)
}

func TestParseExpired(t *testing.T) {
	pair, err := auth.Issue("stu-1", auth.RoleStudent, "classtrack", "secret", -time.Minute, time.Hour)
	require.NoError(t, err)

	_, err = auth.Parse(pair.AccessToken, "secret", "classtrack")
	require.Error(t, err)
}
