package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken はトークンの検証に失敗したことを表す。
var ErrInvalidToken = errors.New("invalid token")

// Claims はアクセストークンのクレーム。subjectにopenidを格納する。
type Claims struct {
	jwt.RegisteredClaims
}

// TokenManager はHS256署名のアクセストークンを発行・検証する。
type TokenManager struct {
	secret  []byte
	expires time.Duration
	now     func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret string, expires time.Duration) *TokenManager {
	return &TokenManager{
		secret:  []byte(secret),
		expires: expires,
		now:     time.Now,
	}
}

// Issue はopenidを主体とするトークンを発行し、有効期限と共に返す。
func (m *TokenManager) Issue(openid string) (string, time.Time, error) {
	if openid == "" {
		return "", time.Time{}, fmt.Errorf("openid is required")
	}

	now := m.now()
	expiresAt := now.Add(m.expires)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   openid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify はトークンを検証し、openidを返す。
// 署名方式がHMAC以外、期限切れ、subject欠落の場合はErrInvalidTokenをラップして返す。
func (m *TokenManager) Verify(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
