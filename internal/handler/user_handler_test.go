package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/displaydate/internal/model"
)

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	meFn            func(ctx context.Context, openid string) (*model.User, error)
	updateProfileFn func(ctx context.Context, openid string, update model.UserProfileUpdate) (*model.User, error)
}

func (m *mockUserService) Me(ctx context.Context, openid string) (*model.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx, openid)
	}
	return &model.User{OpenID: openid, ReminderDays: model.DefaultReminderDays}, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, openid string, update model.UserProfileUpdate) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, openid, update)
	}
	return &model.User{OpenID: openid}, nil
}

func TestUserHandler_Me(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := withOpenID(httptest.NewRequest(http.MethodGet, "/api/users/me", nil), "o-1")
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.OpenID != "o-1" {
		t.Errorf("openid = %q, want %q", resp.OpenID, "o-1")
	}
	if resp.ReminderDays != model.DefaultReminderDays {
		t.Errorf("reminder_days = %d, want %d", resp.ReminderDays, model.DefaultReminderDays)
	}
}

func TestUserHandler_Me_Unauthorized(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	assertErrorResponse(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestUserHandler_UpdateProfile_PassesOnlyGivenFields(t *testing.T) {
	var captured model.UserProfileUpdate
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, openid string, update model.UserProfileUpdate) (*model.User, error) {
			captured = update
			return &model.User{OpenID: openid, Nickname: "hana", ReminderDays: 7}, nil
		},
	}
	h := NewUserHandler(svc)

	req := withOpenID(newJSONRequest(http.MethodPatch, "/api/users/me", `{"nickname":"hana","reminder_days":7}`), "o-1")
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured.Nickname == nil || *captured.Nickname != "hana" {
		t.Errorf("nickname = %v, want hana", captured.Nickname)
	}
	if captured.ReminderDays == nil || *captured.ReminderDays != 7 {
		t.Errorf("reminder_days = %v, want 7", captured.ReminderDays)
	}
	if captured.PhoneNumber != nil || captured.AvatarURL != nil {
		t.Error("omitted fields should be nil")
	}
}

func TestUserHandler_UpdateProfile_ValidationError(t *testing.T) {
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, openid string, update model.UserProfileUpdate) (*model.User, error) {
			return nil, model.NewValidationError("reminder_daysは0以上で指定してください")
		},
	}
	h := NewUserHandler(svc)

	req := withOpenID(newJSONRequest(http.MethodPatch, "/api/users/me", `{"reminder_days":-1}`), "o-1")
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	assertErrorResponse(t, w, http.StatusBadRequest, model.ErrCodeValidation)
}
