package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenIssueAndVerifyRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("a-secret-at-least-32-bytes-long!", time.Hour)

	token, err := issuer.Issue(7, "admin@example.com")
	require.NoError(t, err)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, uint(7), id)
}

func TestTokenVerifyRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("a-secret-at-least-32-bytes-long!", -time.Hour)

	token, err := issuer.Issue(1, "a@example.com")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.Error(t, err)
}

func TestTokenVerifyRejectsWrongSecret(t *testing.T) {
	issuer1 := NewTokenIssuer("a-secret-at-least-32-bytes-long!", time.Hour)
	issuer2 := NewTokenIssuer("different-secret-32-bytes-long!!", time.Hour)

	token, err := issuer1.Issue(1, "a@example.com")
	require.NoError(t, err)

	_, err = issuer2.Verify(token)
	require.Error(t, err)
}
