package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single failure mode of token verification: bad
// signature, malformed payload, wrong secret, or expiry in the past all
// collapse into it. Verification failure is an expected outcome, not a fault.
var ErrInvalidToken = errors.New("invalid token")

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenService issues and verifies the two token kinds. Access and refresh
// tokens are signed with distinct secrets, so one kind never verifies
// against the other's secret.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess signs a short-lived access token for the given user.
func (s *TokenService) IssueAccess(userID int64) (string, error) {
	return sign(userID, s.accessSecret, s.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for the given user.
func (s *TokenService) IssueRefresh(userID int64) (string, error) {
	return sign(userID, s.refreshSecret, s.refreshTTL)
}

// VerifyAccess returns the user ID carried by a valid access token,
// or ErrInvalidToken.
func (s *TokenService) VerifyAccess(token string) (int64, error) {
	return verify(token, s.accessSecret)
}

// VerifyRefresh returns the user ID carried by a valid refresh token,
// or ErrInvalidToken.
func (s *TokenService) VerifyRefresh(token string) (int64, error) {
	return verify(token, s.refreshSecret)
}

func sign(userID int64, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func verify(tokenString string, secret []byte) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	// json numbers decode as float64
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrInvalidToken
	}
	return int64(userID), nil
}
