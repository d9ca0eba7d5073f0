// Package model はドメインモデルを定義する。
package model

import "time"

// DefaultQuantity は数量未指定時の物品数。
const DefaultQuantity = 1

// Item は期限を管理する物品を表す。
// TeamIDがnilの場合は個人物品、設定されている場合はチーム共有物品となる。
type Item struct {
	ID           string
	OwnerOpenID  string
	TeamID       *string
	Name         string
	Category     string
	ExpireDate   string // "YYYY-MM-DD" または "YYYY-MM-DD HH:MM"
	Note         string
	Barcode      string
	ProductImage string
	Quantity     int

	Deleted   bool
	DeletedAt *time.Time
	DeletedBy string

	NotifiedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTeamScoped はチーム共有物品かどうかを返す。
func (i *Item) IsTeamScoped() bool {
	return i.TeamID != nil && *i.TeamID != ""
}

// MarkDeleted は論理削除の3属性をまとめて設定する。
func (i *Item) MarkDeleted(by string, at time.Time) {
	i.Deleted = true
	i.DeletedAt = &at
	i.DeletedBy = by
	i.UpdatedAt = at
}

// Restore は論理削除を取り消す。
func (i *Item) Restore(at time.Time) {
	i.Deleted = false
	i.DeletedAt = nil
	i.DeletedBy = ""
	i.UpdatedAt = at
}

// ItemFields は物品の部分更新ペイロードを表す。
// nilのフィールドは変更しない。
type ItemFields struct {
	Name         *string
	Category     *string
	ExpireDate   *string
	Note         *string
	Barcode      *string
	ProductImage *string
	Quantity     *int
}

// ApplyTo は指定されたフィールドのみを物品に反映する。
func (f ItemFields) ApplyTo(item *Item) {
	if f.Name != nil {
		item.Name = *f.Name
	}
	if f.Category != nil {
		item.Category = *f.Category
	}
	if f.ExpireDate != nil {
		item.ExpireDate = *f.ExpireDate
	}
	if f.Note != nil {
		item.Note = *f.Note
	}
	if f.Barcode != nil {
		item.Barcode = *f.Barcode
	}
	if f.ProductImage != nil {
		item.ProductImage = *f.ProductImage
	}
	if f.Quantity != nil {
		item.Quantity = *f.Quantity
	}
}

// ReminderCandidate はリマインド判定対象の物品と所有者のリード日数の組。
// 未削除かつ未通知の物品のみが候補となる。
type ReminderCandidate struct {
	ItemID       string
	OwnerOpenID  string
	Name         string
	ExpireDate   string
	ReminderDays int
}
