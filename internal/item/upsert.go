package item

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hitoshi/displaydate/internal/model"
)

// CreateInput は物品作成の入力。
// TeamIDがnilまたは空文字の場合は個人物品として作成する。
type CreateInput struct {
	TeamID *string
	Fields model.ItemFields
}

// CreateOrRestore は物品を作成する。
// 同じ(owner, team, name)の論理削除済み物品があれば、最も新しく削除されたものを
// 入力値で上書きして復元する。復元した場合はrestoredがtrueになる。
func (m *Manager) CreateOrRestore(ctx context.Context, actor string, in CreateInput) (item *model.Item, restored bool, err error) {
	teamID := normalizeTeamID(in.TeamID)
	if teamID != nil {
		if _, err := m.requireMember(ctx, *teamID, actor); err != nil {
			return nil, false, err
		}
	}

	fields, err := m.cleanFields(in.Fields)
	if err != nil {
		return nil, false, err
	}
	if fields.Name == nil || *fields.Name == "" {
		return nil, false, model.NewValidationError("nameは必須です")
	}

	existing, err := m.items.FindLatestDeleted(ctx, actor, teamID, *fields.Name)
	if err != nil {
		return nil, false, fmt.Errorf("削除済み物品の検索に失敗しました: %w", err)
	}

	if existing != nil {
		if err := m.restoreExisting(ctx, existing, fields); err != nil {
			return nil, false, err
		}
		m.logger.Info("削除済みの物品を復元しました",
			slog.String("item_id", existing.ID),
			slog.String("owner_openid", actor),
		)
		return existing, true, nil
	}

	created, err := m.createNew(ctx, actor, teamID, fields)
	if err != nil {
		return nil, false, err
	}
	return created, false, nil
}

// restoreExisting は削除済み物品に入力値を反映して復元する。
// チームは変更しない。
func (m *Manager) restoreExisting(ctx context.Context, existing *model.Item, fields model.ItemFields) error {
	fields.ApplyTo(existing)
	existing.Restore(m.now())

	if err := m.items.Update(ctx, existing); err != nil {
		return fmt.Errorf("物品の復元に失敗しました: %w", err)
	}
	return nil
}

// createNew は新規物品を作成する。数量未指定の場合はDefaultQuantityを使用する。
func (m *Manager) createNew(ctx context.Context, actor string, teamID *string, fields model.ItemFields) (*model.Item, error) {
	now := m.now()
	item := &model.Item{
		ID:          uuid.New().String(),
		OwnerOpenID: actor,
		TeamID:      teamID,
		Quantity:    model.DefaultQuantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	fields.ApplyTo(item)

	if err := m.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("物品の作成に失敗しました: %w", err)
	}
	return item, nil
}

// normalizeTeamID は空文字のチームIDをnilとして扱う。
func normalizeTeamID(teamID *string) *string {
	if teamID == nil || *teamID == "" {
		return nil
	}
	id := *teamID
	return &id
}
