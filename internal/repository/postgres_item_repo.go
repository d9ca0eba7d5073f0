package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/displaydate/internal/model"
	"github.com/lib/pq"
)

// PostgresItemRepo はPostgreSQLを使用した物品リポジトリ。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

const selectItemColumns = `SELECT id, owner_openid, team_id, name, category, expire_date, note,
        barcode, product_image, quantity, deleted, deleted_at, deleted_by,
        notified_at, created_at, updated_at
 FROM items`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var teamID, category, expireDate, note, barcode, productImage, deletedBy sql.NullString
	var deletedAt, notifiedAt sql.NullTime

	err := s.Scan(
		&item.ID, &item.OwnerOpenID, &teamID, &item.Name, &category, &expireDate, &note,
		&barcode, &productImage, &item.Quantity, &item.Deleted, &deletedAt, &deletedBy,
		&notifiedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if teamID.Valid {
		item.TeamID = &teamID.String
	}
	item.Category = category.String
	item.ExpireDate = expireDate.String
	item.Note = note.String
	item.Barcode = barcode.String
	item.ProductImage = productImage.String
	item.DeletedBy = deletedBy.String
	if deletedAt.Valid {
		item.DeletedAt = &deletedAt.Time
	}
	if notifiedAt.Valid {
		item.NotifiedAt = &notifiedAt.Time
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]*model.Item, error) {
	defer rows.Close()

	var items []*model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("物品行のスキャンに失敗しました: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("物品行の反復処理に失敗しました: %w", err)
	}
	return items, nil
}

// FindByID は指定IDの物品を取得する。論理削除済みの行も返す。
// UUID形式でないIDは存在しないものとして扱う。
func (r *PostgresItemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	item, err := scanItem(r.db.QueryRowContext(ctx, selectItemColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("物品の取得に失敗しました: %w", err)
	}
	return item, nil
}

// FindLatestDeleted は(owner, team, name)が一致する論理削除済みの物品のうち最新のものを返す。
func (r *PostgresItemRepo) FindLatestDeleted(ctx context.Context, ownerOpenID string, teamID *string, name string) (*model.Item, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx,
		selectItemColumns+`
		 WHERE owner_openid = $1
		   AND team_id IS NOT DISTINCT FROM $2::uuid
		   AND name = $3
		   AND deleted = TRUE
		 ORDER BY deleted_at DESC NULLS LAST, updated_at DESC
		 LIMIT 1`,
		ownerOpenID, nullableTeamID(teamID), name,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("削除済み物品の検索に失敗しました: %w", err)
	}
	return item, nil
}

// Create は新規物品を作成する。
func (r *PostgresItemRepo) Create(ctx context.Context, item *model.Item) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO items (id, owner_openid, team_id, name, category, expire_date, note,
		                    barcode, product_image, quantity, deleted, deleted_at, deleted_by,
		                    notified_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		item.ID, item.OwnerOpenID, nullableTeamID(item.TeamID), item.Name,
		nullString(item.Category), nullString(item.ExpireDate), nullString(item.Note),
		nullString(item.Barcode), nullString(item.ProductImage), item.Quantity,
		item.Deleted, item.DeletedAt, nullString(item.DeletedBy),
		item.NotifiedAt, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("物品の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は物品の可変属性と論理削除属性を上書き更新する。
// owner_openid、team_id、created_atは変更しない。
func (r *PostgresItemRepo) Update(ctx context.Context, item *model.Item) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE items SET
		    name = $2, category = $3, expire_date = $4, note = $5,
		    barcode = $6, product_image = $7, quantity = $8,
		    deleted = $9, deleted_at = $10, deleted_by = $11,
		    notified_at = $12, updated_at = $13
		 WHERE id = $1`,
		item.ID, item.Name, nullString(item.Category), nullString(item.ExpireDate),
		nullString(item.Note), nullString(item.Barcode), nullString(item.ProductImage),
		item.Quantity, item.Deleted, item.DeletedAt, nullString(item.DeletedBy),
		item.NotifiedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("物品の更新に失敗しました: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("更新対象の物品が存在しません: %s", item.ID)
	}
	return nil
}

// ListActiveByOwner は個人物品のうち未削除のものを更新日時の降順で返す。
func (r *PostgresItemRepo) ListActiveByOwner(ctx context.Context, ownerOpenID string) ([]*model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		selectItemColumns+`
		 WHERE owner_openid = $1 AND team_id IS NULL AND deleted = FALSE
		 ORDER BY updated_at DESC`,
		ownerOpenID,
	)
	if err != nil {
		return nil, fmt.Errorf("個人物品一覧の取得に失敗しました: %w", err)
	}
	return scanItems(rows)
}

// ListActiveByTeam はチームの未削除物品を更新日時の降順で返す。
func (r *PostgresItemRepo) ListActiveByTeam(ctx context.Context, teamID string) ([]*model.Item, error) {
	if _, err := uuid.Parse(teamID); err != nil {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		selectItemColumns+`
		 WHERE team_id = $1 AND deleted = FALSE
		 ORDER BY updated_at DESC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("チーム物品一覧の取得に失敗しました: %w", err)
	}
	return scanItems(rows)
}

// ListActiveByIDsForOwner は指定IDのうち所有者が一致する未削除物品を返す。
func (r *PostgresItemRepo) ListActiveByIDsForOwner(ctx context.Context, ownerOpenID string, ids []string) ([]*model.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		selectItemColumns+`
		 WHERE id::text = ANY($2) AND owner_openid = $1 AND deleted = FALSE
		 ORDER BY updated_at DESC`,
		ownerOpenID, pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("指定物品の取得に失敗しました: %w", err)
	}
	return scanItems(rows)
}

// SetNotifiedAt はnotified_atを設定する。atがnilの場合はクリアする。
func (r *PostgresItemRepo) SetNotifiedAt(ctx context.Context, id string, at *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items SET notified_at = $2, updated_at = now() WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("通知日時の更新に失敗しました: %w", err)
	}
	return nil
}

// ListPendingReminders は未削除かつ未通知の物品を所有者のreminder_daysと共に返す。
// 期限文字列の解析はアプリケーション側で行う。
func (r *PostgresItemRepo) ListPendingReminders(ctx context.Context) ([]model.ReminderCandidate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.owner_openid, i.name, COALESCE(i.expire_date, ''),
		        COALESCE(u.reminder_days, $1)
		 FROM items i
		 LEFT JOIN users u ON u.openid = i.owner_openid
		 WHERE i.deleted = FALSE AND i.notified_at IS NULL
		 ORDER BY i.created_at`,
		model.DefaultReminderDays,
	)
	if err != nil {
		return nil, fmt.Errorf("リマインド候補の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var candidates []model.ReminderCandidate
	for rows.Next() {
		var c model.ReminderCandidate
		if err := rows.Scan(&c.ItemID, &c.OwnerOpenID, &c.Name, &c.ExpireDate, &c.ReminderDays); err != nil {
			return nil, fmt.Errorf("リマインド候補のスキャンに失敗しました: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リマインド候補の反復処理に失敗しました: %w", err)
	}
	return candidates, nil
}

// MarkNotified は物品が未通知の場合に限りnotified_atを設定する。
// 送信と記録の間に論理削除された物品も記録対象とする。
func (r *PostgresItemRepo) MarkNotified(ctx context.Context, itemID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE items SET notified_at = $2, updated_at = $2
		 WHERE id = $1 AND notified_at IS NULL`,
		itemID, at,
	)
	if err != nil {
		return fmt.Errorf("通知済みの記録に失敗しました: %w", err)
	}
	return nil
}

// nullableTeamID はチームIDをNULL許容の値に変換する。
func nullableTeamID(teamID *string) sql.NullString {
	if teamID == nil {
		return sql.NullString{}
	}
	return nullString(*teamID)
}

// compile-time interface check
var (
	_ ItemRepository     = (*PostgresItemRepo)(nil)
	_ ReminderRepository = (*PostgresItemRepo)(nil)
)
