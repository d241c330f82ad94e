package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOAuthStorePutAndTakeIsOneShot(t *testing.T) {
	s := newOAuthStore()
	s.put("state1", pendingAuth{nonce: "n1", pkceVerifier: "v1", createdAt: time.Now()})

	p, ok := s.take("state1")
	require.True(t, ok)
	require.Equal(t, "n1", p.nonce)

	_, ok = s.take("state1")
	require.False(t, ok, "state should be consumed after first take")
}

func TestOAuthStoreEvictsExpiredEntries(t *testing.T) {
	s := newOAuthStore()
	s.entries["stale"] = pendingAuth{createdAt: time.Now().Add(-pendingAuthTTL - time.Minute)}

	s.put("fresh", pendingAuth{createdAt: time.Now()})

	_, staleOk := s.entries["stale"]
	require.False(t, staleOk)
	_, freshOk := s.entries["fresh"]
	require.True(t, freshOk)
}

func TestPKCEChallengeIsDeterministic(t *testing.T) {
	c1 := pkceChallenge("verifier-value")
	c2 := pkceChallenge("verifier-value")
	require.Equal(t, c1, c2)
}
