package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL applies when the configured TTL is not positive.
const DefaultTokenTTL = 60 * time.Minute

// CustomClaims extends JWT standard claims with the caller's identity.
type CustomClaims struct {
	jwt.RegisteredClaims
	Username   string     `json:"username"`
	Permission Permission `json:"perm"`
}

// UserID returns the numeric user id carried in the subject.
func (c *CustomClaims) UserID() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not a user id", ErrTokenInvalid, c.Subject)
	}
	return id, nil
}

// GenerateAccessToken creates a signed JWT access token for a user.
// Tokens are validated by signature and expiry only; the permission they
// carry is a snapshot taken at login.
func GenerateAccessToken(user *User, secret string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	expires := now.Add(ttl)
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
		Username:   user.Username,
		Permission: user.Permission,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates and parses a JWT access token, returning the custom claims.
// It checks the signature, expiry, and required fields.
func ParseToken(tokenString, secret string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	if !claims.Permission.IsValid() {
		return nil, fmt.Errorf("%w: unknown permission %q", ErrTokenInvalid, claims.Permission)
	}

	return claims, nil
}
