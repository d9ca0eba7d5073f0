package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/displaydate/internal/middleware"
	"github.com/hitoshi/displaydate/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// writeAPIErrorResponse はAPIErrorを統一フォーマットで書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeItemNotFound, model.ErrCodeTeamNotFound,
		model.ErrCodeInviteCodeNotFound, model.ErrCodeUserNotFound,
		model.ErrCodeWardrobeCategoryNotFound, model.ErrCodeWardrobeItemNotFound,
		model.ErrCodeOutfitNotFound:
		return http.StatusNotFound
	case model.ErrCodeForbidden, model.ErrCodeOwnerOnly:
		return http.StatusForbidden
	case model.ErrCodeQuotaExceeded, model.ErrCodeInviteCodeTaken, model.ErrCodeCategoryNameTaken:
		return http.StatusConflict
	case model.ErrCodeValidation, model.ErrCodeOwnerCannotBeRemoved, model.ErrCodeOwnerCannotLeave:
		return http.StatusBadRequest
	case model.ErrCodeGatewayFailed:
		return http.StatusBadGateway
	case model.ErrCodeGatewayNotConfigured:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// requireOpenID は認証済みopenidを取得する。取得できない場合は401を書き込みfalseを返す。
func requireOpenID(w http.ResponseWriter, r *http.Request) (string, bool) {
	openid, err := middleware.OpenIDFromContext(r.Context())
	if err != nil {
		middleware.WriteUnauthorized(w)
		return "", false
	}
	return openid, true
}

// decodeJSON はリクエストボディをdstにデコードする。
// 失敗した場合は400を書き込みfalseを返す。空ボディはallowEmptyがtrueの場合のみ許可する。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディが不正です"))
	return false
}
