package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"duochat/internal/core/domain"
)

const tokenIssuer = "duochat"

var ErrInvalidToken = errors.New("invalid token")

type TokenService struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	nowFn     func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenService{
		secretKey: []byte(secret),
		issuer:    tokenIssuer,
		ttl:       ttl,
		nowFn:     time.Now,
	}
}

// GenerateToken signs an HS256 token whose subject is the user id.
func (s *TokenService) GenerateToken(userID domain.UserID) (string, error) {
	now := s.nowFn()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken parses the token and returns its subject.
func (s *TokenService) ValidateToken(tokenStr string) (domain.UserID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFn),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: subject not found", ErrInvalidToken)
	}
	return domain.UserID(claims.Subject), nil
}
