// Package wardrobe は衣類の分類、衣類、コーディネートの管理を提供する。
// いずれも所有者本人だけが参照、変更でき、他人のデータは存在しないものとして扱う。
package wardrobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/displaydate/internal/model"
	"github.com/hitoshi/displaydate/internal/repository"
	"github.com/hitoshi/displaydate/internal/security"
)

const (
	maxCategoryNameLength = 50
	maxItemNameLength     = 100
	maxColorLength        = 50
	maxSizeLength         = 20
	maxSeasonLength       = 20
	maxBrandLength        = 100
	maxOccasionLength     = 50
	maxImageURLLength     = 1024
	maxNoteLength         = 1024
	maxOutfitItems        = 50

	// NUMERIC(10,2)に収まる上限
	maxPrice = 99999999.99
)

// Manager は衣類データのライフサイクルと所有者チェックを管理する。
type Manager struct {
	repo      repository.WardrobeRepository
	sanitizer security.TextSanitizer
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager はManagerの新しいインスタンスを生成する。
func NewManager(repo repository.WardrobeRepository, sanitizer security.TextSanitizer, logger *slog.Logger) *Manager {
	return &Manager{
		repo:      repo,
		sanitizer: sanitizer,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// checkLength はvalueがmax文字以内かを検証する。
func checkLength(field string, value *string, max int) error {
	if value != nil && utf8.RuneCountInString(*value) > max {
		return model.NewValidationError(fmt.Sprintf("%sは%d文字以内で指定してください", field, max))
	}
	return nil
}

// checkName は必須の名前項目を検証する。nilは未指定として通す。
func checkName(field string, value *string, max int) error {
	if value != nil && *value == "" {
		return model.NewValidationError(fmt.Sprintf("%sは空にできません", field))
	}
	return checkLength(field, value, max)
}

// --- 分類 ---

func (m *Manager) cleanCategory(f model.CategoryFields) (model.CategoryFields, error) {
	f.Name = security.CleanPtr(m.sanitizer, f.Name)
	if err := checkName("name", f.Name, maxCategoryNameLength); err != nil {
		return f, err
	}
	return f, nil
}

// loadCategory はactorが所有する分類を取得する。
func (m *Manager) loadCategory(ctx context.Context, actor, id string) (*model.WardrobeCategory, error) {
	c, err := m.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("分類の取得に失敗しました: %w", err)
	}
	if c == nil || c.OwnerOpenID != actor {
		return nil, model.NewWardrobeCategoryNotFoundError(id)
	}
	return c, nil
}

// ListCategories はactorの分類を並び順に返す。各分類には未削除の衣類数が付く。
func (m *Manager) ListCategories(ctx context.Context, actor string) ([]*model.WardrobeCategory, error) {
	categories, err := m.repo.ListCategories(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("分類一覧の取得に失敗しました: %w", err)
	}
	if categories == nil {
		categories = []*model.WardrobeCategory{}
	}
	return categories, nil
}

// CreateCategory は分類を作成する。並び順の省略時は0。
func (m *Manager) CreateCategory(ctx context.Context, actor string, fields model.CategoryFields) (*model.WardrobeCategory, error) {
	if fields.Name == nil {
		return nil, model.NewValidationError("nameは必須です")
	}
	cleaned, err := m.cleanCategory(fields)
	if err != nil {
		return nil, err
	}

	now := m.now()
	c := &model.WardrobeCategory{
		ID:          uuid.NewString(),
		OwnerOpenID: actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cleaned.ApplyTo(c)

	if err := m.repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, repository.ErrCategoryNameTaken) {
			return nil, model.NewCategoryNameTakenError(c.Name)
		}
		return nil, fmt.Errorf("分類の作成に失敗しました: %w", err)
	}
	return c, nil
}

// UpdateCategory は名前と並び順を部分更新する。
func (m *Manager) UpdateCategory(ctx context.Context, actor, id string, fields model.CategoryFields) (*model.WardrobeCategory, error) {
	cleaned, err := m.cleanCategory(fields)
	if err != nil {
		return nil, err
	}

	c, err := m.loadCategory(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	cleaned.ApplyTo(c)
	c.UpdatedAt = m.now()

	if err := m.repo.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, repository.ErrCategoryNameTaken) {
			return nil, model.NewCategoryNameTakenError(c.Name)
		}
		return nil, fmt.Errorf("分類の更新に失敗しました: %w", err)
	}
	return c, nil
}

// DeleteCategory は分類とその衣類をまとめて削除する。
func (m *Manager) DeleteCategory(ctx context.Context, actor, id string) error {
	if _, err := m.loadCategory(ctx, actor, id); err != nil {
		return err
	}
	if err := m.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("分類の削除に失敗しました: %w", err)
	}

	m.logger.Info("衣類の分類を削除しました",
		slog.String("category_id", id),
		slog.String("owner_openid", actor),
	)
	return nil
}

// --- 衣類 ---

func (m *Manager) cleanItem(f model.WardrobeItemFields) (model.WardrobeItemFields, error) {
	f.Name = security.CleanPtr(m.sanitizer, f.Name)
	f.Color = security.CleanPtr(m.sanitizer, f.Color)
	f.Size = security.CleanPtr(m.sanitizer, f.Size)
	f.Season = security.CleanPtr(m.sanitizer, f.Season)
	f.Brand = security.CleanPtr(m.sanitizer, f.Brand)
	f.Note = security.CleanPtr(m.sanitizer, f.Note)

	for _, err := range []error{
		checkName("name", f.Name, maxItemNameLength),
		checkLength("color", f.Color, maxColorLength),
		checkLength("size", f.Size, maxSizeLength),
		checkLength("season", f.Season, maxSeasonLength),
		checkLength("brand", f.Brand, maxBrandLength),
		checkLength("image_url", f.ImageURL, maxImageURLLength),
		checkLength("note", f.Note, maxNoteLength),
	} {
		if err != nil {
			return f, err
		}
	}

	if f.Price != nil {
		if math.IsNaN(*f.Price) || *f.Price < 0 || *f.Price > maxPrice {
			return f, model.NewValidationError("priceは0以上99999999.99以下で指定してください")
		}
		rounded := math.Round(*f.Price*100) / 100
		f.Price = &rounded
	}
	if f.PurchaseDate != nil && *f.PurchaseDate != "" {
		if _, err := time.Parse(time.DateOnly, *f.PurchaseDate); err != nil {
			return f, model.NewValidationError("purchase_dateはYYYY-MM-DD形式で指定してください")
		}
	}
	return f, nil
}

// loadActiveItem はactorが所有する未削除の衣類を取得する。
func (m *Manager) loadActiveItem(ctx context.Context, actor, id string) (*model.WardrobeItem, error) {
	w, err := m.repo.FindItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("衣類の取得に失敗しました: %w", err)
	}
	if w == nil || w.Deleted || w.OwnerOpenID != actor {
		return nil, model.NewWardrobeItemNotFoundError(id)
	}
	return w, nil
}

// ListItems はactorの未削除の衣類を新しい順に返す。categoryIDが空でなければ絞り込む。
func (m *Manager) ListItems(ctx context.Context, actor, categoryID string) ([]*model.WardrobeItem, error) {
	items, err := m.repo.ListItems(ctx, actor, categoryID)
	if err != nil {
		return nil, fmt.Errorf("衣類一覧の取得に失敗しました: %w", err)
	}
	if items == nil {
		items = []*model.WardrobeItem{}
	}
	return items, nil
}

// CreateItem は衣類を作成する。分類はactorが所有している必要がある。
func (m *Manager) CreateItem(ctx context.Context, actor string, fields model.WardrobeItemFields) (*model.WardrobeItem, error) {
	if fields.Name == nil {
		return nil, model.NewValidationError("nameは必須です")
	}
	if fields.CategoryID == nil || *fields.CategoryID == "" {
		return nil, model.NewValidationError("category_idは必須です")
	}
	cleaned, err := m.cleanItem(fields)
	if err != nil {
		return nil, err
	}

	category, err := m.loadCategory(ctx, actor, *cleaned.CategoryID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	w := &model.WardrobeItem{
		ID:          uuid.NewString(),
		OwnerOpenID: actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cleaned.ApplyTo(w)
	w.CategoryName = category.Name

	if err := m.repo.CreateItem(ctx, w); err != nil {
		return nil, fmt.Errorf("衣類の作成に失敗しました: %w", err)
	}
	return w, nil
}

// UpdateItem は指定された項目のみを更新する。分類の付け替え先もactorの分類に限る。
func (m *Manager) UpdateItem(ctx context.Context, actor, id string, fields model.WardrobeItemFields) (*model.WardrobeItem, error) {
	cleaned, err := m.cleanItem(fields)
	if err != nil {
		return nil, err
	}

	w, err := m.loadActiveItem(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if cleaned.CategoryID != nil && *cleaned.CategoryID != w.CategoryID {
		category, err := m.loadCategory(ctx, actor, *cleaned.CategoryID)
		if err != nil {
			return nil, err
		}
		w.CategoryName = category.Name
	}

	cleaned.ApplyTo(w)
	w.UpdatedAt = m.now()

	if err := m.repo.UpdateItem(ctx, w); err != nil {
		return nil, fmt.Errorf("衣類の更新に失敗しました: %w", err)
	}
	return w, nil
}

// DeleteItem は衣類を論理削除する。
func (m *Manager) DeleteItem(ctx context.Context, actor, id string) error {
	w, err := m.loadActiveItem(ctx, actor, id)
	if err != nil {
		return err
	}

	w.MarkDeleted(m.now())
	if err := m.repo.UpdateItem(ctx, w); err != nil {
		return fmt.Errorf("衣類の削除に失敗しました: %w", err)
	}
	return nil
}

// --- コーディネート ---

// cleanOutfit はテキスト項目をサニタイズし、衣類IDの重複を除く。
func (m *Manager) cleanOutfit(f model.OutfitFields) (model.OutfitFields, error) {
	f.Name = security.CleanPtr(m.sanitizer, f.Name)
	f.Occasion = security.CleanPtr(m.sanitizer, f.Occasion)
	f.Season = security.CleanPtr(m.sanitizer, f.Season)

	for _, err := range []error{
		checkName("name", f.Name, maxItemNameLength),
		checkLength("occasion", f.Occasion, maxOccasionLength),
		checkLength("season", f.Season, maxSeasonLength),
		checkLength("image_url", f.ImageURL, maxImageURLLength),
	} {
		if err != nil {
			return f, err
		}
	}

	if f.ItemIDs != nil {
		ids := make([]string, 0, len(f.ItemIDs))
		for _, id := range f.ItemIDs {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
		if len(ids) > maxOutfitItems {
			return f, model.NewValidationError(fmt.Sprintf("item_idsは%d件以内で指定してください", maxOutfitItems))
		}
		f.ItemIDs = ids
	}
	return f, nil
}

// checkOutfitItems はidsが全てactorの未削除の衣類であることを確認する。
func (m *Manager) checkOutfitItems(ctx context.Context, actor string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := m.repo.ListActiveItemIDs(ctx, actor, ids)
	if err != nil {
		return fmt.Errorf("衣類の確認に失敗しました: %w", err)
	}
	for _, id := range ids {
		if !slices.Contains(found, id) {
			return model.NewWardrobeItemNotFoundError(id)
		}
	}
	return nil
}

func (m *Manager) loadOutfit(ctx context.Context, actor, id string) (*model.Outfit, error) {
	o, err := m.repo.FindOutfit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("コーディネートの取得に失敗しました: %w", err)
	}
	if o == nil || o.OwnerOpenID != actor {
		return nil, model.NewOutfitNotFoundError(id)
	}
	return o, nil
}

// ListOutfits はactorのコーディネートを新しい順に返す。
func (m *Manager) ListOutfits(ctx context.Context, actor string) ([]*model.Outfit, error) {
	outfits, err := m.repo.ListOutfits(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("コーディネート一覧の取得に失敗しました: %w", err)
	}
	if outfits == nil {
		outfits = []*model.Outfit{}
	}
	return outfits, nil
}

// CreateOutfit はコーディネートを作成する。
func (m *Manager) CreateOutfit(ctx context.Context, actor string, fields model.OutfitFields) (*model.Outfit, error) {
	if fields.Name == nil {
		return nil, model.NewValidationError("nameは必須です")
	}
	cleaned, err := m.cleanOutfit(fields)
	if err != nil {
		return nil, err
	}
	if err := m.checkOutfitItems(ctx, actor, cleaned.ItemIDs); err != nil {
		return nil, err
	}

	now := m.now()
	o := &model.Outfit{
		ID:          uuid.NewString(),
		OwnerOpenID: actor,
		ItemIDs:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cleaned.ApplyTo(o)

	if err := m.repo.CreateOutfit(ctx, o); err != nil {
		return nil, fmt.Errorf("コーディネートの作成に失敗しました: %w", err)
	}
	return o, nil
}

// UpdateOutfit は指定された項目のみを更新する。
func (m *Manager) UpdateOutfit(ctx context.Context, actor, id string, fields model.OutfitFields) (*model.Outfit, error) {
	cleaned, err := m.cleanOutfit(fields)
	if err != nil {
		return nil, err
	}

	o, err := m.loadOutfit(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := m.checkOutfitItems(ctx, actor, cleaned.ItemIDs); err != nil {
		return nil, err
	}

	cleaned.ApplyTo(o)
	o.UpdatedAt = m.now()

	if err := m.repo.UpdateOutfit(ctx, o); err != nil {
		return nil, fmt.Errorf("コーディネートの更新に失敗しました: %w", err)
	}
	return o, nil
}

// DeleteOutfit はコーディネートを削除する。含まれる衣類は残る。
func (m *Manager) DeleteOutfit(ctx context.Context, actor, id string) error {
	if _, err := m.loadOutfit(ctx, actor, id); err != nil {
		return err
	}
	if err := m.repo.DeleteOutfit(ctx, id); err != nil {
		return fmt.Errorf("コーディネートの削除に失敗しました: %w", err)
	}
	return nil
}
