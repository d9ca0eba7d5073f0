package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/displaydate/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Me(ctx context.Context, openid string) (*model.User, error)
	UpdateProfile(ctx context.Context, openid string, update model.UserProfileUpdate) (*model.User, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

type userResponse struct {
	OpenID       string    `json:"openid"`
	Nickname     string    `json:"nickname"`
	PhoneNumber  string    `json:"phone_number"`
	AvatarURL    string    `json:"avatar_url"`
	ReminderDays int       `json:"reminder_days"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type updateProfileRequest struct {
	Nickname     *string `json:"nickname"`
	PhoneNumber  *string `json:"phone_number"`
	AvatarURL    *string `json:"avatar_url"`
	ReminderDays *int    `json:"reminder_days"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		OpenID:       u.OpenID,
		Nickname:     u.Nickname,
		PhoneNumber:  u.PhoneNumber,
		AvatarURL:    u.AvatarURL,
		ReminderDays: u.ReminderDays,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// Me は認証済みユーザーのプロフィールを返す。未作成の場合は作成する。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	user, err := h.service.Me(r.Context(), openid)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateProfile はプロフィールと通知リード日数を更新する。
// PATCH /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	openid, ok := requireOpenID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), openid, model.UserProfileUpdate{
		Nickname:     req.Nickname,
		PhoneNumber:  req.PhoneNumber,
		AvatarURL:    req.AvatarURL,
		ReminderDays: req.ReminderDays,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
