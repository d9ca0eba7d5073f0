package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/displaydate/internal/model"
)

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *model.APIError
		want int
	}{
		{"物品未検出", model.NewItemNotFoundError("x"), http.StatusNotFound},
		{"チーム未検出", model.NewTeamNotFoundError("x"), http.StatusNotFound},
		{"招待コード無効", model.NewInviteCodeNotFoundError(), http.StatusNotFound},
		{"ユーザー未検出", model.NewUserNotFoundError(), http.StatusNotFound},
		{"権限なし", model.NewForbiddenError("x"), http.StatusForbidden},
		{"オーナー限定", model.NewOwnerOnlyError(), http.StatusForbidden},
		{"クォータ超過", model.NewQuotaExceededError(5), http.StatusConflict},
		{"招待コード重複", model.NewInviteCodeTakenError(), http.StatusConflict},
		{"分類未検出", model.NewWardrobeCategoryNotFoundError("x"), http.StatusNotFound},
		{"衣類未検出", model.NewWardrobeItemNotFoundError("x"), http.StatusNotFound},
		{"コーディネート未検出", model.NewOutfitNotFoundError("x"), http.StatusNotFound},
		{"分類名重複", model.NewCategoryNameTakenError("x"), http.StatusConflict},
		{"バリデーション", model.NewValidationError("x"), http.StatusBadRequest},
		{"オーナー除外", model.NewOwnerCannotBeRemovedError(), http.StatusBadRequest},
		{"オーナー退出", model.NewOwnerCannotLeaveError(), http.StatusBadRequest},
		{"送信失敗", model.NewGatewayFailedError("x"), http.StatusBadGateway},
		{"送信未設定", model.NewGatewayNotConfiguredError(), http.StatusInternalServerError},
		{"未知のコード", &model.APIError{Code: "SOMETHING_ELSE"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}

func TestHandleServiceError_WrappedAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	handleServiceError(w, fmt.Errorf("wrap: %w", model.NewOwnerOnlyError()))

	assertErrorResponse(t, w, http.StatusForbidden, model.ErrCodeOwnerOnly)
}

func TestHandleServiceError_UnknownErrorHidesDetail(t *testing.T) {
	w := httptest.NewRecorder()
	handleServiceError(w, errors.New("pq: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := parseAPIErrorResponse(t, w)
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want %q", body.Code, "INTERNAL_ERROR")
	}
	if body.Message == "pq: connection refused" {
		t.Error("internal error detail should not be exposed")
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		allowEmpty bool
		wantOK     bool
	}{
		{"正常", `{"code":"abc"}`, false, true},
		{"空ボディ（不許可）", ``, false, false},
		{"空ボディ（許可）", ``, true, true},
		{"不正なJSON", `{"code":`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newJSONRequest(http.MethodPost, "/", tt.body)
			w := httptest.NewRecorder()
			var dst loginRequest

			ok := decodeJSON(w, req, &dst, tt.allowEmpty)
			if ok != tt.wantOK {
				t.Fatalf("decodeJSON() = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				assertErrorResponse(t, w, http.StatusBadRequest, model.ErrCodeValidation)
			}
		})
	}
}

func TestRequireOpenID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	if _, ok := requireOpenID(w, req); ok {
		t.Fatal("requireOpenID() should fail without openid")
	}
	assertErrorResponse(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}
