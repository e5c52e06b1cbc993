package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/ldap-sync/pkg/users"
)

// DefaultTokenExpiry is how long issued tokens stay valid.
const DefaultTokenExpiry = 15 * time.Minute

// Claims carried by issued tokens.
type Claims struct {
	Username string `json:"username,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues HS256 tokens for SSO-authenticated users so that
// downstream APIs can verify requests without seeing the SSO header.
type TokenService struct {
	Secret   string
	Issuer   string
	Audience string
	Expiry   time.Duration
}

// NewTokenService creates a token service with the default expiry.
func NewTokenService(secret, issuer, audience string) *TokenService {
	return &TokenService{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
		Expiry:   DefaultTokenExpiry,
	}
}

// IssueToken signs a token for the given user.
func (s *TokenService) IssueToken(user users.User) (string, time.Time, error) {
	now := time.Now().UTC()
	claims := Claims{
		Username: user.Username,
		Domain:   user.Domain,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.Expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    s.Issuer,
			Subject:   user.ID.String(),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{s.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// ParseToken validates a token string and returns its claims.
func (s *TokenService) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
