// Package repository はデータ永続化のインターフェースとPostgreSQL実装を定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/displaydate/internal/model"
)

// ErrInviteCodeTaken は招待コードの一意制約違反を表す。
var ErrInviteCodeTaken = errors.New("invite code already in use")

// ErrCategoryNameTaken は衣類の分類名の一意制約違反を表す。
var ErrCategoryNameTaken = errors.New("wardrobe category name already in use")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByOpenID は指定openidのユーザーを取得する。見つからない場合はnilを返す。
	FindByOpenID(ctx context.Context, openid string) (*model.User, error)

	// Ensure はユーザーが存在しなければデフォルト値で作成し、現在の行を返す。
	Ensure(ctx context.Context, openid string) (*model.User, error)

	// UpdateProfile はプロフィール項目とreminder_daysを更新する。
	UpdateProfile(ctx context.Context, user *model.User) error
}

// ItemRepository は物品データの永続化インターフェース。
type ItemRepository interface {
	// FindByID は指定IDの物品を取得する。論理削除済みの行も返す。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Item, error)

	// FindLatestDeleted は(owner, team, name)が一致する論理削除済みの物品のうち
	// 最も新しく削除されたものを返す。teamIDがnilの場合は個人物品を対象とする。
	FindLatestDeleted(ctx context.Context, ownerOpenID string, teamID *string, name string) (*model.Item, error)

	// Create は新規物品を作成する。
	Create(ctx context.Context, item *model.Item) error

	// Update は物品の可変属性と論理削除属性を上書き更新する。
	Update(ctx context.Context, item *model.Item) error

	// ListActiveByOwner は個人物品（team_id IS NULL）のうち未削除のものを更新日時の降順で返す。
	ListActiveByOwner(ctx context.Context, ownerOpenID string) ([]*model.Item, error)

	// ListActiveByTeam はチームの未削除物品を更新日時の降順で返す。
	ListActiveByTeam(ctx context.Context, teamID string) ([]*model.Item, error)

	// ListActiveByIDsForOwner は指定IDのうち所有者が一致する未削除物品を返す。
	ListActiveByIDsForOwner(ctx context.Context, ownerOpenID string, ids []string) ([]*model.Item, error)

	// SetNotifiedAt はnotified_atを設定する。nilの場合はクリアする。
	SetNotifiedAt(ctx context.Context, id string, at *time.Time) error
}

// ReminderRepository はリマインドエンジンが使用する物品データ操作のインターフェース。
type ReminderRepository interface {
	// ListPendingReminders は未削除かつ未通知の物品を所有者のreminder_daysと共に返す。
	// 所有者のユーザー行が存在しない場合はデフォルトのリード日数を用いる。
	ListPendingReminders(ctx context.Context) ([]model.ReminderCandidate, error)

	// MarkNotified は物品が未通知の場合に限りnotified_atを設定する。
	MarkNotified(ctx context.Context, itemID string, at time.Time) error
}

// TeamRepository はチームデータの永続化インターフェース。
// メンバーシップを変更する操作はInTx内のTeamTxを通して行う。
type TeamRepository interface {
	// FindByID は指定IDのチームを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Team, error)

	// ListByOwner は指定ユーザーがオーナーのチームを返す。
	ListByOwner(ctx context.Context, openid string) ([]*model.Team, error)

	// ListByMember は指定ユーザーがメンバーに含まれるチームを返す。
	ListByMember(ctx context.Context, openid string) ([]*model.Team, error)

	// InTx はfnを単一のトランザクション内で実行する。
	// fnがエラーを返した場合はロールバックし、そのエラーを返す。
	InTx(ctx context.Context, fn func(tx TeamTx) error) error
}

// TeamTx はトランザクション内で使用するチーム操作のインターフェース。
type TeamTx interface {
	// LockUser は指定ユーザーのメンバーシップ変更をトランザクション終了まで直列化する。
	LockUser(ctx context.Context, openid string) error

	// FindByIDForUpdate は指定IDのチームを行ロック付きで取得する。見つからない場合はnilを返す。
	FindByIDForUpdate(ctx context.Context, id string) (*model.Team, error)

	// FindByInviteCodeForUpdate は招待コードでチームを行ロック付きで取得する。見つからない場合はnilを返す。
	FindByInviteCodeForUpdate(ctx context.Context, code string) (*model.Team, error)

	// ListAffiliatedForUpdate は指定ユーザーがオーナーまたはメンバーのチームを行ロック付きで返す。
	ListAffiliatedForUpdate(ctx context.Context, openid string) ([]*model.Team, error)

	// Create はチームを作成する。招待コードが重複する場合はErrInviteCodeTakenを返す。
	Create(ctx context.Context, team *model.Team) error

	// Update は名前、メンバー、招待コードを更新する。招待コードが重複する場合はErrInviteCodeTakenを返す。
	Update(ctx context.Context, team *model.Team) error

	// Delete はチームを削除する。チームの物品はCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// WardrobeRepository は衣類の分類、衣類、コーディネートの永続化インターフェース。
// 検索系は見つからない場合にnilを返す。
type WardrobeRepository interface {
	// ListCategories は所有者の分類を並び順、作成日時の順に未削除の衣類数と共に返す。
	ListCategories(ctx context.Context, ownerOpenID string) ([]*model.WardrobeCategory, error)

	FindCategory(ctx context.Context, id string) (*model.WardrobeCategory, error)

	// CreateCategory は分類を作成する。同名の分類がある場合はErrCategoryNameTakenを返す。
	CreateCategory(ctx context.Context, category *model.WardrobeCategory) error

	// UpdateCategory は名前と並び順を更新する。同名の分類がある場合はErrCategoryNameTakenを返す。
	UpdateCategory(ctx context.Context, category *model.WardrobeCategory) error

	// DeleteCategory は分類を削除する。分類の衣類は論理削除済みのものも含めCASCADE削除される。
	DeleteCategory(ctx context.Context, id string) error

	// ListItems は所有者の未削除の衣類を作成日時の降順で返す。categoryIDが空でなければ絞り込む。
	ListItems(ctx context.Context, ownerOpenID, categoryID string) ([]*model.WardrobeItem, error)

	// FindItem は衣類を分類名と共に取得する。論理削除済みの行も返す。
	FindItem(ctx context.Context, id string) (*model.WardrobeItem, error)

	CreateItem(ctx context.Context, item *model.WardrobeItem) error

	// UpdateItem は衣類の可変属性と論理削除属性を上書き更新する。
	UpdateItem(ctx context.Context, item *model.WardrobeItem) error

	// ListActiveItemIDs は指定IDのうち所有者が一致する未削除の衣類のIDを返す。
	ListActiveItemIDs(ctx context.Context, ownerOpenID string, ids []string) ([]string, error)

	// ListOutfits は所有者のコーディネートを作成日時の降順で返す。
	ListOutfits(ctx context.Context, ownerOpenID string) ([]*model.Outfit, error)

	FindOutfit(ctx context.Context, id string) (*model.Outfit, error)

	CreateOutfit(ctx context.Context, outfit *model.Outfit) error

	UpdateOutfit(ctx context.Context, outfit *model.Outfit) error

	DeleteOutfit(ctx context.Context, id string) error
}
