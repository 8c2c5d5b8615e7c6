package auth

import (
	"chat-relay/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "a_test_secret_long_enough_for_hs256"

func TestAuthenticator_Token_Roundtrip(t *testing.T) {
	req := require.New(t)
	a := NewAuthenticator(testSecret, time.Hour)

	token, err := a.GenerateToken("alice", []string{"user"})
	req.NoError(err)

	claims, err := a.ValidateToken(token)
	req.NoError(err)
	req.Equal("alice", claims.UserID)
	req.Equal([]string{"user"}, claims.Roles)
	req.Equal(issuer, claims.Issuer)
}

func TestAuthenticator_Rejects_Invalid_Tokens(t *testing.T) {
	req := require.New(t)
	a := NewAuthenticator(testSecret, time.Hour)

	// Signed with another secret
	other, err := NewAuthenticator("another_secret_of_decent_length", time.Hour).GenerateToken("alice", nil)
	req.NoError(err)
	_, err = a.ValidateToken(other)
	req.ErrorIs(err, errors.ErrUnauthenticated)

	// Expired
	expired, err := NewAuthenticator(testSecret, -time.Minute).GenerateToken("alice", nil)
	req.NoError(err)
	_, err = a.ValidateToken(expired)
	req.ErrorIs(err, errors.ErrUnauthenticated)

	// Garbage
	_, err = a.ValidateToken("invalid-token-string")
	req.ErrorIs(err, errors.ErrUnauthenticated)
}
