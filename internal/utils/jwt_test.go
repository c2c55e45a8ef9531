package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndExtract(t *testing.T) {
	s := NewJWTService("secret")
	userID := uuid.New()

	token, err := s.GenerateToken(userID)
	require.NoError(t, err)

	got, err := s.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), got)
}

func TestExtractWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret").GenerateToken(uuid.New())
	require.NoError(t, err)

	_, err = NewJWTService("other").ExtractUserID(token)
	assert.Error(t, err)
}

func TestExtractExpired(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret").ExtractUserID(signed)
	assert.Error(t, err)
}

func TestExtractWithoutExpiry(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": uuid.NewString()})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret").ExtractUserID(signed)
	assert.Error(t, err)
}

func TestExtractNumericUserID(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 123456789,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret").ExtractUserID(signed)
	assert.Error(t, err)
}

func TestExtractRejectsOtherAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWTService("secret").ExtractUserID(signed)
	assert.Error(t, err)
}
