package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/Daskott/lifealert/server/auth/key"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeyPair(t *testing.T) *key.KeyPair {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)

	return &key.KeyPair{Kid: "test-kid", PrivateKey: privateKey, PublicKey: &privateKey.PublicKey}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.Nil(t, err)

	assert.NotEqual(t, "correct-horse", hash)
	assert.True(t, CheckPasswordHash("correct-horse", hash))
	assert.False(t, CheckPasswordHash("wrong-horse", hash))
	assert.False(t, CheckPasswordHash("correct-horse", ""))
}

func TestEncodeDecodeJWT(t *testing.T) {
	keyPair := newTestKeyPair(t)

	token, err := EncodeJWT(NewClaims("u1", "u1@x.com", true), keyPair)
	require.Nil(t, err)

	claims, err := DecodeJWT(token, keyPair)
	require.Nil(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "u1@x.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "lifealert", claims.Issuer)
}

func TestDecodeJWTRejectsForeignKey(t *testing.T) {
	token, err := EncodeJWT(NewClaims("u1", "u1@x.com", false), newTestKeyPair(t))
	require.Nil(t, err)

	_, err = DecodeJWT(token, newTestKeyPair(t))
	assert.NotNil(t, err)
}

func TestDecodeJWTRejectsExpiredToken(t *testing.T) {
	keyPair := newTestKeyPair(t)
	claims := NewClaims("u1", "u1@x.com", false)
	claims.ExpiresAt = time.Now().Add(-time.Minute).Unix()

	token, err := EncodeJWT(claims, keyPair)
	require.Nil(t, err)

	_, err = DecodeJWT(token, keyPair)
	assert.NotNil(t, err)
}

func TestDecodeJWTRejectsHMAC(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, NewClaims("u1", "u1@x.com", true))
	tokenString, err := token.SignedString([]byte("secret"))
	require.Nil(t, err)

	_, err = DecodeJWT(tokenString, newTestKeyPair(t))
	assert.NotNil(t, err)
}
