// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// openIDContextKey はリクエストコンテキストにopenidを格納するためのキー。
var openIDContextKey = contextKey("openid")

// TokenVerifier はアクセストークンを検証し、openidを返すインターフェース。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// NewAuthMiddleware はAuthorization: Bearerヘッダーのトークンを検証するミドルウェアを返す。
// 認証済みopenidをリクエストコンテキストに注入する。
// トークンが無い、または無効な場合は401 Unauthorizedを返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteUnauthorized(w)
				return
			}

			openid, err := verifier.Verify(token)
			if err != nil {
				slog.Debug("token verification failed",
					slog.String("error", err.Error()),
				)
				WriteUnauthorized(w)
				return
			}

			if meta := requestMetaFromContext(r.Context()); meta != nil {
				meta.openid = openid
			}

			ctx := context.WithValue(r.Context(), openIDContextKey, openid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// OpenIDFromContext はリクエストコンテキストからopenidを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func OpenIDFromContext(ctx context.Context) (string, error) {
	openid, ok := ctx.Value(openIDContextKey).(string)
	if !ok || openid == "" {
		return "", fmt.Errorf("openid not found in context")
	}
	return openid, nil
}

// ContextWithOpenID はコンテキストにopenidを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithOpenID(ctx context.Context, openid string) context.Context {
	return context.WithValue(ctx, openIDContextKey, openid)
}
