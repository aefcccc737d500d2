package auth_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-civic-auth"
)

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func TestNewTokenService(t *testing.T) {
	t.Run("rejects a missing key", func(t *testing.T) {
		_, err := auth.NewTokenService(nil, time.Hour, "civic", nil)
		require.Error(t, err)
	})

	t.Run("rejects a short key", func(t *testing.T) {
		_, err := auth.NewTokenService([]byte("too-short"), time.Hour, "civic", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too short")
	})

	t.Run("defaults the ttl", func(t *testing.T) {
		ts, err := auth.NewTokenService([]byte(testSigningKey), 0, "civic", &MockLogger{})
		require.NoError(t, err)
		assert.Equal(t, auth.DefaultTokenTTL, ts.TTL())
	})

	t.Run("copies the key", func(t *testing.T) {
		key := []byte(testSigningKey)
		ts, err := auth.NewTokenService(key, time.Hour, "civic", nil)
		require.NoError(t, err)

		token, _, err := ts.Issue("alice", auth.RoleCitizen, fixedClock())
		require.NoError(t, err)

		key[0] = 'X'
		subject, err := ts.Verify(token, fixedClock())
		require.NoError(t, err)
		assert.Equal(t, "alice", subject)
	})
}

func TestTokenService_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	now := fixedClock()

	for _, subject := range []string{"alice", "bob.smith", "ünïcode", "with space"} {
		for _, role := range auth.Roles() {
			token, expiresAt, err := ts.Issue(subject, role, now)
			require.NoError(t, err)
			assert.Equal(t, now.Add(24*time.Hour), expiresAt)
			assert.Len(t, strings.Split(token, "."), 3)

			got, err := ts.Verify(token, now)
			require.NoError(t, err)
			assert.Equal(t, subject, got)
		}
	}
}

func TestTokenService_Issue_Validation(t *testing.T) {
	ts := newTestTokenService(t)

	_, _, err := ts.Issue("  ", auth.RoleCitizen, fixedClock())
	assert.Error(t, err)

	_, _, err = ts.Issue("alice", auth.Role("SUPERUSER"), fixedClock())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid role")
}

func TestTokenService_ExpiryBoundary(t *testing.T) {
	ts := newTestTokenService(t)
	issued := fixedClock()

	token, expiresAt, err := ts.Issue("alice", auth.RoleCitizen, issued)
	require.NoError(t, err)

	tests := []struct {
		name    string
		at      time.Time
		expired bool
	}{
		{"at issuance", issued, false},
		{"one second before expiry", expiresAt.Add(-time.Second), false},
		{"exactly at expiry", expiresAt, false},
		{"one nanosecond after expiry", expiresAt.Add(time.Nanosecond), true},
		{"one day after expiry", expiresAt.Add(24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, err := ts.Verify(token, tt.at)
			if tt.expired {
				require.Error(t, err)
				assert.True(t, auth.IsTokenExpiredError(err))
				assert.Empty(t, subject)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", subject)
		})
	}
}

func TestTokenService_ExpiredOneSecondAgo(t *testing.T) {
	ts := newTestTokenService(t)
	now := fixedClock()

	// minted so that exp = now - 1s
	token, expiresAt, err := ts.Issue("alice", auth.RoleCitizen, now.Add(-ts.TTL()-time.Second))
	require.NoError(t, err)
	assert.Equal(t, now.Add(-time.Second), expiresAt)

	_, err = ts.Verify(token, now)
	require.Error(t, err)
	assert.True(t, auth.IsTokenExpiredError(err))
	assert.False(t, auth.IsSignatureInvalidError(err))
}

func TestTokenService_SubSecondIssueInstant(t *testing.T) {
	ts := newTestTokenService(t)
	issued := fixedClock().Add(750 * time.Millisecond)

	token, expiresAt, err := ts.Issue("alice", auth.RoleCitizen, issued)
	require.NoError(t, err)
	assert.Equal(t, fixedClock().Add(ts.TTL()), expiresAt)

	claims := &auth.TokenClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, fixedClock(), claims.IssuedAt().UTC())
	assert.Equal(t, claims.IssuedAt().Add(ts.TTL()).UTC(), claims.Expires().UTC())

	subject, err := ts.Verify(token, expiresAt)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	_, err = ts.Verify(token, expiresAt.Add(time.Nanosecond))
	assert.True(t, auth.IsTokenExpiredError(err))
}

func TestTokenService_SignatureMutation(t *testing.T) {
	ts := newTestTokenService(t)

	token, _, err := ts.Issue("alice", auth.RoleCitizen, fixedClock())
	require.NoError(t, err)

	sigStart := strings.LastIndex(token, ".") + 1
	require.Greater(t, len(token), sigStart)

	for i := sigStart; i < len(token); i++ {
		for _, replacement := range []byte{nextAlphabetChar(token[i]), '!'} {
			mutated := []byte(token)
			mutated[i] = replacement

			_, err := ts.Verify(string(mutated), fixedClock())
			require.Error(t, err, "position %d replacement %q", i, replacement)
			assert.True(t, auth.IsSignatureInvalidError(err), "position %d replacement %q: %v", i, replacement, err)
		}
	}
}

func TestTokenService_PayloadTamper(t *testing.T) {
	ts := newTestTokenService(t)

	token, _, err := ts.Issue("alice", auth.RoleCitizen, fixedClock())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"admin","exp":4102444800}`))

	_, err = ts.Verify(parts[0]+"."+forged+"."+parts[2], fixedClock())
	require.Error(t, err)
	assert.True(t, auth.IsSignatureInvalidError(err))
}

func TestTokenService_Malformed(t *testing.T) {
	ts := newTestTokenService(t)

	for _, token := range []string{
		"",
		"not-a-token",
		"a.b",
		"a.b.c.d",
		"!!!.###.$$$",
	} {
		_, err := ts.Verify(token, fixedClock())
		require.Error(t, err, token)
		assert.True(t, auth.IsMalformedError(err), "%q: %v", token, err)
	}
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	ts := newTestTokenService(t)
	now := fixedClock()

	claims := jwt.MapClaims{"sub": "alice", "exp": now.Add(time.Hour).Unix()}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ts.Verify(none, now)
	require.Error(t, err)
	assert.True(t, auth.IsTokenError(err))

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	_, err = ts.Verify(hs512, now)
	require.Error(t, err)
	assert.True(t, auth.IsTokenError(err))
}

func TestTokenService_DifferentKey(t *testing.T) {
	ts := newTestTokenService(t)
	other, err := auth.NewTokenService([]byte("another-signing-key-0123456789abcdef"), time.Hour, "civic", nil)
	require.NoError(t, err)

	token, _, err := other.Issue("alice", auth.RoleAdmin, fixedClock())
	require.NoError(t, err)

	_, err = ts.Verify(token, fixedClock())
	require.Error(t, err)
	assert.True(t, auth.IsSignatureInvalidError(err))
}

func TestTokenService_RoleIsNotTrusted(t *testing.T) {
	ts := newTestTokenService(t)

	token, _, err := ts.Issue("alice", auth.RoleAdmin, fixedClock())
	require.NoError(t, err)

	// Verify hands back the subject only; callers look the role up
	subject, err := ts.Verify(token, fixedClock())
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	claims := &auth.TokenClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", claims.Role())
	assert.Equal(t, fixedClock(), claims.IssuedAt().UTC())
	assert.Equal(t, fixedClock().Add(24*time.Hour), claims.Expires().UTC())
}

func nextAlphabetChar(c byte) byte {
	i := strings.IndexByte(base64URLAlphabet, c)
	return base64URLAlphabet[(i+1)%len(base64URLAlphabet)]
}
