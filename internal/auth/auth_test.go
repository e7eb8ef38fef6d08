package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rgbportal/internal/domain"
)

const testSecret = "test-secret-0123456789"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}

func TestShortPasswordRejected(t *testing.T) {
	_, err := HashPassword("short")
	require.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := IssueToken(testSecret, 42, KindAdmin, domain.RoleCEO, time.Hour, now)
	require.NoError(t, err)

	id, err := VerifyToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.ID)
	assert.Equal(t, KindAdmin, id.Kind)
	assert.Equal(t, domain.RoleCEO, id.Role)
}

func TestApplicantTokenHasNoRole(t *testing.T) {
	token, err := IssueToken(testSecret, 7, KindApplicant, "", time.Hour, time.Now())
	require.NoError(t, err)

	id, err := VerifyToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, KindApplicant, id.Kind)
	assert.Empty(t, id.Role)
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := IssueToken(testSecret, 1, KindApplicant, "", time.Hour, time.Now())
	require.NoError(t, err)

	_, err = VerifyToken("another-secret", token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	token, err := IssueToken(testSecret, 1, KindApplicant, "", time.Hour, issued)
	require.NoError(t, err)

	_, err = VerifyToken(testSecret, token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	_, err := VerifyToken(testSecret, "not.a.token")
	assert.Error(t, err)
}

func TestEmptySecretRefused(t *testing.T) {
	_, err := IssueToken("", 1, KindApplicant, "", time.Hour, time.Now())
	assert.Error(t, err)
	_, err = VerifyToken("", "whatever")
	assert.Error(t, err)
}
