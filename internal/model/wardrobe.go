package model

import "time"

// WardrobeCategory は衣類の分類。分類名は所有者ごとに一意。
type WardrobeCategory struct {
	ID          string
	OwnerOpenID string
	Name        string
	SortOrder   int
	ItemCount   int // 未削除の衣類数。一覧取得時のみ設定される
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryFields は分類の部分更新ペイロード。nilのフィールドは変更しない。
type CategoryFields struct {
	Name      *string
	SortOrder *int
}

// ApplyTo は指定されたフィールドのみを分類に反映する。
func (f CategoryFields) ApplyTo(c *WardrobeCategory) {
	if f.Name != nil {
		c.Name = *f.Name
	}
	if f.SortOrder != nil {
		c.SortOrder = *f.SortOrder
	}
}

// WardrobeItem は衣類を表す。削除は論理削除で、分類の削除時のみ行ごと消える。
type WardrobeItem struct {
	ID           string
	OwnerOpenID  string
	CategoryID   string
	CategoryName string // 参照時のみ設定される
	Name         string
	Color        string
	Size         string
	Season       string
	Brand        string
	Price        *float64
	PurchaseDate string // "YYYY-MM-DD"
	ImageURL     string
	Note         string

	Deleted   bool
	DeletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MarkDeleted は論理削除の属性をまとめて設定する。
func (w *WardrobeItem) MarkDeleted(at time.Time) {
	w.Deleted = true
	w.DeletedAt = &at
	w.UpdatedAt = at
}

// WardrobeItemFields は衣類の部分更新ペイロード。nilのフィールドは変更しない。
type WardrobeItemFields struct {
	CategoryID   *string
	Name         *string
	Color        *string
	Size         *string
	Season       *string
	Brand        *string
	Price        *float64
	PurchaseDate *string
	ImageURL     *string
	Note         *string
}

// ApplyTo は指定されたフィールドのみを衣類に反映する。
func (f WardrobeItemFields) ApplyTo(w *WardrobeItem) {
	if f.CategoryID != nil {
		w.CategoryID = *f.CategoryID
	}
	if f.Name != nil {
		w.Name = *f.Name
	}
	if f.Color != nil {
		w.Color = *f.Color
	}
	if f.Size != nil {
		w.Size = *f.Size
	}
	if f.Season != nil {
		w.Season = *f.Season
	}
	if f.Brand != nil {
		w.Brand = *f.Brand
	}
	if f.Price != nil {
		price := *f.Price
		w.Price = &price
	}
	if f.PurchaseDate != nil {
		w.PurchaseDate = *f.PurchaseDate
	}
	if f.ImageURL != nil {
		w.ImageURL = *f.ImageURL
	}
	if f.Note != nil {
		w.Note = *f.Note
	}
}

// Outfit は衣類の組み合わせ。ItemIDsは登録順を保持する。
type Outfit struct {
	ID          string
	OwnerOpenID string
	Name        string
	ItemIDs     []string
	Occasion    string
	Season      string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OutfitFields はコーディネートの部分更新ペイロード。
type OutfitFields struct {
	Name     *string
	ItemIDs  []string // nilの場合は変更しない。空スライスは全件解除
	Occasion *string
	Season   *string
	ImageURL *string
}

// ApplyTo は指定されたフィールドのみをコーディネートに反映する。
func (f OutfitFields) ApplyTo(o *Outfit) {
	if f.Name != nil {
		o.Name = *f.Name
	}
	if f.ItemIDs != nil {
		o.ItemIDs = append([]string{}, f.ItemIDs...)
	}
	if f.Occasion != nil {
		o.Occasion = *f.Occasion
	}
	if f.Season != nil {
		o.Season = *f.Season
	}
	if f.ImageURL != nil {
		o.ImageURL = *f.ImageURL
	}
}
