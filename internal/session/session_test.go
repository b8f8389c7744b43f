package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewManager("test-secret-key-32-bytes-long!!!", time.Hour)

	token, claims, err := m.Issue()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Len(t, claims.SessionID, 32)
	assert.Len(t, claims.CSRF, 32)

	got, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID, got.SessionID)
	assert.Equal(t, claims.CSRF, got.CSRF)
}

func TestIssueProducesDistinctSessions(t *testing.T) {
	m := NewManager("test-secret-key-32-bytes-long!!!", time.Hour)

	_, a, err := m.Issue()
	require.NoError(t, err)
	_, b, err := m.Issue()
	require.NoError(t, err)

	assert.NotEqual(t, a.SessionID, b.SessionID)
	assert.NotEqual(t, a.CSRF, b.CSRF)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret-key-32-bytes-long!!!", time.Hour)

	_, err := m.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	a := NewManager("key-one", time.Hour)
	b := NewManager("key-two", time.Hour)

	token, _, err := a.Issue()
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewManager("test-secret-key-32-bytes-long!!!", -time.Minute)

	token, _, err := m.Issue()
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCheckCSRF(t *testing.T) {
	m := NewManager("test-secret-key-32-bytes-long!!!", time.Hour)
	_, claims, err := m.Issue()
	require.NoError(t, err)

	assert.NoError(t, m.CheckCSRF(claims, claims.CSRF))
	assert.ErrorIs(t, m.CheckCSRF(claims, ""), ErrCSRFMismatch)
	assert.ErrorIs(t, m.CheckCSRF(claims, "wrong"), ErrCSRFMismatch)
}
