package auth

import (
	"fmt"
	"time"

	"github.com/Daskott/lifealert/server/auth/key"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const TOKEN_TTL = 24 * time.Hour

type LifeAlertTokenClaims struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.StandardClaims
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NewClaims builds the claims for a freshly signed in user
func NewClaims(userID, email string, isAdmin bool) LifeAlertTokenClaims {
	now := time.Now()
	return LifeAlertTokenClaims{
		Email:   email,
		IsAdmin: isAdmin,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(TOKEN_TTL).Unix(),
			Issuer:    "lifealert",
		},
	}
}

func EncodeJWT(claims LifeAlertTokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*LifeAlertTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LifeAlertTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*LifeAlertTokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to LifeAlertTokenClaims")
	}

	return tokenClaims, nil
}
