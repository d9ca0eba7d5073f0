package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, item, team, wardrobe, notify, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeItemNotFound         = "ITEM_NOT_FOUND"
	ErrCodeTeamNotFound         = "TEAM_NOT_FOUND"
	ErrCodeInviteCodeNotFound   = "INVITE_CODE_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeOwnerOnly            = "OWNER_ONLY"
	ErrCodeQuotaExceeded        = "QUOTA_EXCEEDED"
	ErrCodeOwnerCannotBeRemoved = "OWNER_CANNOT_BE_REMOVED"
	ErrCodeOwnerCannotLeave     = "OWNER_CANNOT_LEAVE"
	ErrCodeInviteCodeTaken      = "INVITE_CODE_TAKEN"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeGatewayNotConfigured = "GATEWAY_NOT_CONFIGURED"
	ErrCodeGatewayFailed        = "GATEWAY_FAILED"

	ErrCodeWardrobeCategoryNotFound = "WARDROBE_CATEGORY_NOT_FOUND"
	ErrCodeWardrobeItemNotFound     = "WARDROBE_ITEM_NOT_FOUND"
	ErrCodeOutfitNotFound           = "OUTFIT_NOT_FOUND"
	ErrCodeCategoryNameTaken        = "CATEGORY_NAME_TAKEN"
)

// HasCode はerrがAPIErrorであり指定コードを持つかどうかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewItemNotFoundError は物品未検出エラーを生成する。
// 論理削除済みの物品も未検出として扱う。
func NewItemNotFoundError(itemID string) *APIError {
	return &APIError{
		Code:     ErrCodeItemNotFound,
		Message:  fmt.Sprintf("指定された物品が見つかりません: %s", itemID),
		Category: "item",
		Action:   "物品IDを確認してください。",
	}
}

// NewTeamNotFoundError はチーム未検出エラーを生成する。
func NewTeamNotFoundError(teamID string) *APIError {
	return &APIError{
		Code:     ErrCodeTeamNotFound,
		Message:  fmt.Sprintf("指定されたチームが見つかりません: %s", teamID),
		Category: "team",
		Action:   "チームIDを確認してください。",
	}
}

// NewInviteCodeNotFoundError は招待コードが無効な場合のエラーを生成する。
func NewInviteCodeNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeInviteCodeNotFound,
		Message:  "招待コードが無効です。",
		Category: "team",
		Action:   "チームのオーナーに最新の招待コードを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewForbiddenError は操作権限がない場合のエラーを生成する。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", reason),
		Category: "auth",
		Action:   "物品の所有者またはチームのメンバーで操作してください。",
	}
}

// NewOwnerOnlyError はオーナー限定操作を非オーナーが行った場合のエラーを生成する。
func NewOwnerOnlyError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnerOnly,
		Message:  "この操作はチームのオーナーのみ実行できます。",
		Category: "team",
		Action:   "チームのオーナーに依頼してください。",
	}
}

// NewQuotaExceededError はチームのメンバー数が上限に達している場合のエラーを生成する。
func NewQuotaExceededError(quota int) *APIError {
	return &APIError{
		Code:     ErrCodeQuotaExceeded,
		Message:  fmt.Sprintf("チームのメンバー数が上限（%d人）に達しています。", quota),
		Category: "team",
		Action:   "オーナーにメンバーの整理を依頼してください。",
	}
}

// NewOwnerCannotBeRemovedError はオーナーをメンバーから除外しようとした場合のエラーを生成する。
func NewOwnerCannotBeRemovedError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnerCannotBeRemoved,
		Message:  "オーナーはメンバーから除外できません。",
		Category: "team",
		Action:   "チームを解散する場合はチームを削除してください。",
	}
}

// NewOwnerCannotLeaveError はオーナーがチームから退出しようとした場合のエラーを生成する。
func NewOwnerCannotLeaveError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnerCannotLeave,
		Message:  "オーナーはチームから退出できません。",
		Category: "team",
		Action:   "チームを解散する場合はチームを削除してください。",
	}
}

// NewInviteCodeTakenError は指定した招待コードが既に使われている場合のエラーを生成する。
func NewInviteCodeTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeInviteCodeTaken,
		Message:  "この招待コードは既に使用されています。",
		Category: "team",
		Action:   "別の招待コードを指定するか、指定せずに自動生成してください。",
	}
}

// NewValidationError はリクエスト内容が不正な場合のエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewGatewayNotConfiguredError はプッシュ通知の設定が未完了の場合のエラーを生成する。
func NewGatewayNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeGatewayNotConfigured,
		Message:  "通知の送信設定が完了していません。",
		Category: "system",
		Action:   "管理者に連絡してください。",
	}
}

// NewGatewayFailedError はプッシュ通知の送信に失敗した場合のエラーを生成する。
func NewGatewayFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeGatewayFailed,
		Message:  fmt.Sprintf("通知の送信に失敗しました: %s", reason),
		Category: "notify",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewWardrobeCategoryNotFoundError は衣類の分類が見つからない場合のエラーを生成する。
// 他の利用者の分類も未検出として扱う。
func NewWardrobeCategoryNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeWardrobeCategoryNotFound,
		Message:  fmt.Sprintf("指定された分類が見つかりません: %s", id),
		Category: "wardrobe",
		Action:   "分類IDを確認してください。",
	}
}

// NewWardrobeItemNotFoundError は衣類が見つからない場合のエラーを生成する。
func NewWardrobeItemNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeWardrobeItemNotFound,
		Message:  fmt.Sprintf("指定された衣類が見つかりません: %s", id),
		Category: "wardrobe",
		Action:   "衣類IDを確認してください。",
	}
}

// NewOutfitNotFoundError はコーディネートが見つからない場合のエラーを生成する。
func NewOutfitNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeOutfitNotFound,
		Message:  fmt.Sprintf("指定されたコーディネートが見つかりません: %s", id),
		Category: "wardrobe",
		Action:   "コーディネートIDを確認してください。",
	}
}

// NewCategoryNameTakenError は同名の分類が既にある場合のエラーを生成する。
func NewCategoryNameTakenError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNameTaken,
		Message:  fmt.Sprintf("同じ名前の分類が既に存在します: %s", name),
		Category: "wardrobe",
		Action:   "別の名前を指定してください。",
	}
}
