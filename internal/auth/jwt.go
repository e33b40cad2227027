package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued token (and its matching server-side
// session) stays valid.
const TokenTTL = 72 * time.Hour

var errNoSecret = errors.New("JWT_SECRET is not set")

// secretKey reads the signing key from the environment. The key is never
// hardcoded; the process refuses to issue or validate tokens without it.
func secretKey() ([]byte, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errNoSecret
	}
	return []byte(secret), nil
}

// GenerateToken creates a new JWT for a given user ID. 'sessionID' is the
// token's "jti" claim and doubles as the key of the server-side session
// record in Redis, so a token can be revoked before it expires.
func GenerateToken(userID int64, sessionID string) (string, error) {
	key, err := secretKey()
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"sub": userID,
		"jti": sessionID,
		"exp": time.Now().Add(TokenTTL).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// ValidateToken parses and validates a JWT token string. It returns the
// user ID and session ID if the token is valid.
func ValidateToken(tokenString string) (int64, string, error) {
	key, err := secretKey()
	if err != nil {
		return 0, "", err
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
	if err != nil {
		return 0, "", err // expired, malformed, wrong signature
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	userIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return 0, "", errors.New("invalid subject claim")
	}
	sessionID, ok := claims["jti"].(string)
	if !ok || sessionID == "" {
		return 0, "", errors.New("invalid session claim")
	}

	return int64(userIDFloat), sessionID, nil
}
