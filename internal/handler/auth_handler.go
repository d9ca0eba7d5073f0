package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/displaydate/internal/auth"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Login はログインコードを検証し、アクセストークンを発行する。
	Login(ctx context.Context, code string) (*auth.LoginResult, error)
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

type loginRequest struct {
	Code string `json:"code"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	OpenID    string    `json:"openid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login はログインコードをアクセストークンに交換する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Code)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     result.Token,
		OpenID:    result.OpenID,
		ExpiresAt: result.ExpiresAt,
	})
}
