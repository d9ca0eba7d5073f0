package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/displaydate/internal/model"
	"github.com/lib/pq"
)

// PostgresWardrobeRepo はPostgreSQLを使用した衣類リポジトリ。
type PostgresWardrobeRepo struct {
	db *sql.DB
}

// NewPostgresWardrobeRepo はPostgresWardrobeRepoを生成する。
func NewPostgresWardrobeRepo(db *sql.DB) *PostgresWardrobeRepo {
	return &PostgresWardrobeRepo{db: db}
}

// --- 分類 ---

func (r *PostgresWardrobeRepo) ListCategories(ctx context.Context, ownerOpenID string) ([]*model.WardrobeCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.owner_openid, c.name, c.sort_order, c.created_at, c.updated_at,
		        count(w.id)
		 FROM wardrobe_categories c
		 LEFT JOIN wardrobe_items w ON w.category_id = c.id AND w.deleted = FALSE
		 WHERE c.owner_openid = $1
		 GROUP BY c.id
		 ORDER BY c.sort_order, c.created_at`,
		ownerOpenID,
	)
	if err != nil {
		return nil, fmt.Errorf("分類一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []*model.WardrobeCategory
	for rows.Next() {
		c := &model.WardrobeCategory{}
		if err := rows.Scan(&c.ID, &c.OwnerOpenID, &c.Name, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt, &c.ItemCount); err != nil {
			return nil, fmt.Errorf("分類行のスキャンに失敗しました: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("分類行の反復処理に失敗しました: %w", err)
	}
	return categories, nil
}

func (r *PostgresWardrobeRepo) FindCategory(ctx context.Context, id string) (*model.WardrobeCategory, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	c := &model.WardrobeCategory{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_openid, name, sort_order, created_at, updated_at
		 FROM wardrobe_categories WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.OwnerOpenID, &c.Name, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("分類の取得に失敗しました: %w", err)
	}
	return c, nil
}

func (r *PostgresWardrobeRepo) CreateCategory(ctx context.Context, c *model.WardrobeCategory) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wardrobe_categories (id, owner_openid, name, sort_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.OwnerOpenID, c.Name, c.SortOrder, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrCategoryNameTaken
	}
	if err != nil {
		return fmt.Errorf("分類の作成に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresWardrobeRepo) UpdateCategory(ctx context.Context, c *model.WardrobeCategory) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE wardrobe_categories SET name = $2, sort_order = $3, updated_at = $4 WHERE id = $1`,
		c.ID, c.Name, c.SortOrder, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrCategoryNameTaken
	}
	if err != nil {
		return fmt.Errorf("分類の更新に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresWardrobeRepo) DeleteCategory(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM wardrobe_categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("分類の削除に失敗しました: %w", err)
	}
	return nil
}

// --- 衣類 ---

const selectWardrobeItemColumns = `SELECT w.id, w.owner_openid, w.category_id, c.name, w.name,
        w.color, w.size, w.season, w.brand, w.price, to_char(w.purchase_date, 'YYYY-MM-DD'),
        w.image_url, w.note, w.deleted, w.deleted_at, w.created_at, w.updated_at
 FROM wardrobe_items w
 JOIN wardrobe_categories c ON c.id = w.category_id`

func scanWardrobeItem(s rowScanner) (*model.WardrobeItem, error) {
	w := &model.WardrobeItem{}
	var color, size, season, brand, purchaseDate, imageURL, note sql.NullString
	var price sql.NullFloat64
	var deletedAt sql.NullTime

	err := s.Scan(
		&w.ID, &w.OwnerOpenID, &w.CategoryID, &w.CategoryName, &w.Name,
		&color, &size, &season, &brand, &price, &purchaseDate,
		&imageURL, &note, &w.Deleted, &deletedAt, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.Color = color.String
	w.Size = size.String
	w.Season = season.String
	w.Brand = brand.String
	if price.Valid {
		w.Price = &price.Float64
	}
	w.PurchaseDate = purchaseDate.String
	w.ImageURL = imageURL.String
	w.Note = note.String
	if deletedAt.Valid {
		w.DeletedAt = &deletedAt.Time
	}
	return w, nil
}

func (r *PostgresWardrobeRepo) ListItems(ctx context.Context, ownerOpenID, categoryID string) ([]*model.WardrobeItem, error) {
	var categoryFilter sql.NullString
	if categoryID != "" {
		if _, err := uuid.Parse(categoryID); err != nil {
			return nil, nil
		}
		categoryFilter = nullString(categoryID)
	}

	rows, err := r.db.QueryContext(ctx,
		selectWardrobeItemColumns+`
		 WHERE w.owner_openid = $1 AND w.deleted = FALSE
		   AND ($2::uuid IS NULL OR w.category_id = $2::uuid)
		 ORDER BY w.created_at DESC`,
		ownerOpenID, categoryFilter,
	)
	if err != nil {
		return nil, fmt.Errorf("衣類一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []*model.WardrobeItem
	for rows.Next() {
		w, err := scanWardrobeItem(rows)
		if err != nil {
			return nil, fmt.Errorf("衣類行のスキャンに失敗しました: %w", err)
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("衣類行の反復処理に失敗しました: %w", err)
	}
	return items, nil
}

func (r *PostgresWardrobeRepo) FindItem(ctx context.Context, id string) (*model.WardrobeItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	w, err := scanWardrobeItem(r.db.QueryRowContext(ctx, selectWardrobeItemColumns+` WHERE w.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("衣類の取得に失敗しました: %w", err)
	}
	return w, nil
}

func (r *PostgresWardrobeRepo) CreateItem(ctx context.Context, w *model.WardrobeItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO wardrobe_items (id, owner_openid, category_id, name, color, size, season, brand,
		                             price, purchase_date, image_url, note, deleted, deleted_at,
		                             created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::date, $11, $12, $13, $14, $15, $16)`,
		w.ID, w.OwnerOpenID, w.CategoryID, w.Name,
		nullString(w.Color), nullString(w.Size), nullString(w.Season), nullString(w.Brand),
		w.Price, nullString(w.PurchaseDate), nullString(w.ImageURL), nullString(w.Note),
		w.Deleted, w.DeletedAt, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("衣類の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateItem は衣類の可変属性と論理削除属性を上書き更新する。owner_openidとcreated_atは変更しない。
func (r *PostgresWardrobeRepo) UpdateItem(ctx context.Context, w *model.WardrobeItem) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE wardrobe_items SET
		    category_id = $2, name = $3, color = $4, size = $5, season = $6, brand = $7,
		    price = $8, purchase_date = $9::date, image_url = $10, note = $11,
		    deleted = $12, deleted_at = $13, updated_at = $14
		 WHERE id = $1`,
		w.ID, w.CategoryID, w.Name,
		nullString(w.Color), nullString(w.Size), nullString(w.Season), nullString(w.Brand),
		w.Price, nullString(w.PurchaseDate), nullString(w.ImageURL), nullString(w.Note),
		w.Deleted, w.DeletedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("衣類の更新に失敗しました: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("更新対象の衣類が存在しません: %s", w.ID)
	}
	return nil
}

func (r *PostgresWardrobeRepo) ListActiveItemIDs(ctx context.Context, ownerOpenID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id::text FROM wardrobe_items
		 WHERE id::text = ANY($2) AND owner_openid = $1 AND deleted = FALSE`,
		ownerOpenID, pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("衣類IDの確認に失敗しました: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("衣類IDのスキャンに失敗しました: %w", err)
		}
		found = append(found, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("衣類IDの反復処理に失敗しました: %w", err)
	}
	return found, nil
}

// --- コーディネート ---

const selectOutfitColumns = `SELECT id, owner_openid, name, item_ids, occasion, season, image_url,
        created_at, updated_at
 FROM outfits`

func scanOutfit(s rowScanner) (*model.Outfit, error) {
	o := &model.Outfit{}
	var occasion, season, imageURL sql.NullString
	err := s.Scan(&o.ID, &o.OwnerOpenID, &o.Name, pq.Array(&o.ItemIDs),
		&occasion, &season, &imageURL, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.Occasion = occasion.String
	o.Season = season.String
	o.ImageURL = imageURL.String
	if o.ItemIDs == nil {
		o.ItemIDs = []string{}
	}
	return o, nil
}

func (r *PostgresWardrobeRepo) ListOutfits(ctx context.Context, ownerOpenID string) ([]*model.Outfit, error) {
	rows, err := r.db.QueryContext(ctx,
		selectOutfitColumns+` WHERE owner_openid = $1 ORDER BY created_at DESC`,
		ownerOpenID,
	)
	if err != nil {
		return nil, fmt.Errorf("コーディネート一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var outfits []*model.Outfit
	for rows.Next() {
		o, err := scanOutfit(rows)
		if err != nil {
			return nil, fmt.Errorf("コーディネート行のスキャンに失敗しました: %w", err)
		}
		outfits = append(outfits, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コーディネート行の反復処理に失敗しました: %w", err)
	}
	return outfits, nil
}

func (r *PostgresWardrobeRepo) FindOutfit(ctx context.Context, id string) (*model.Outfit, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	o, err := scanOutfit(r.db.QueryRowContext(ctx, selectOutfitColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コーディネートの取得に失敗しました: %w", err)
	}
	return o, nil
}

func (r *PostgresWardrobeRepo) CreateOutfit(ctx context.Context, o *model.Outfit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO outfits (id, owner_openid, name, item_ids, occasion, season, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.OwnerOpenID, o.Name, outfitItemIDs(o),
		nullString(o.Occasion), nullString(o.Season), nullString(o.ImageURL),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("コーディネートの作成に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresWardrobeRepo) UpdateOutfit(ctx context.Context, o *model.Outfit) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outfits SET name = $2, item_ids = $3, occasion = $4, season = $5, image_url = $6, updated_at = $7
		 WHERE id = $1`,
		o.ID, o.Name, outfitItemIDs(o),
		nullString(o.Occasion), nullString(o.Season), nullString(o.ImageURL), o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("コーディネートの更新に失敗しました: %w", err)
	}
	return nil
}

func (r *PostgresWardrobeRepo) DeleteOutfit(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM outfits WHERE id = $1`, id); err != nil {
		return fmt.Errorf("コーディネートの削除に失敗しました: %w", err)
	}
	return nil
}

// outfitItemIDs はitem_idsの書き込み値を返す。nilのスライスはNULLではなく空配列として書く。
func outfitItemIDs(o *model.Outfit) any {
	if o.ItemIDs == nil {
		return pq.Array([]string{})
	}
	return pq.Array(o.ItemIDs)
}

// compile-time interface check
var _ WardrobeRepository = (*PostgresWardrobeRepo)(nil)
