package model

import "time"

// DefaultReminderDays は期限の何日前から通知するかのデフォルト値。
const DefaultReminderDays = 3

// User はopenidをキーとする利用者を表す。
// 初回の認証済みアクセス時に遅延作成される。
type User struct {
	OpenID       string
	Nickname     string
	PhoneNumber  string
	AvatarURL    string
	ReminderDays int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserProfileUpdate はプロフィールの部分更新ペイロード。
type UserProfileUpdate struct {
	Nickname     *string
	PhoneNumber  *string
	AvatarURL    *string
	ReminderDays *int
}
