// Package item は期限管理対象の物品のライフサイクルを提供する。
// 作成（削除済みの復元を含む）、参照、部分更新、論理削除、通知状態の操作を含む。
package item

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/displaydate/internal/model"
	"github.com/hitoshi/displaydate/internal/repository"
	"github.com/hitoshi/displaydate/internal/security"
	"github.com/hitoshi/displaydate/internal/wechat"
	"github.com/hitoshi/displaydate/internal/worker/reminder"
)

const (
	maxNameLength     = 255
	maxCategoryLength = 100
)

// TeamFinder はチームの参照インターフェース。
type TeamFinder interface {
	FindByID(ctx context.Context, id string) (*model.Team, error)
}

// ReminderDispatcher は1件の物品の通知を送信するインターフェース。
type ReminderDispatcher interface {
	Dispatch(ctx context.Context, item reminder.DueItem) error
}

// NotifyResult は手動通知の結果。
type NotifyResult struct {
	Notified int
	Sent     int
}

// Manager は物品のライフサイクルと権限チェックを管理する。
// チーム物品はチームの現メンバー、個人物品は所有者のみが操作できる。
type Manager struct {
	items      repository.ItemRepository
	teams      TeamFinder
	sanitizer  security.TextSanitizer
	dispatcher ReminderDispatcher // nilの場合は手動通知で送信しない
	logger     *slog.Logger
	now        func() time.Time
}

// NewManager はManagerの新しいインスタンスを生成する。
func NewManager(
	items repository.ItemRepository,
	teams TeamFinder,
	sanitizer security.TextSanitizer,
	dispatcher ReminderDispatcher,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		items:      items,
		teams:      teams,
		sanitizer:  sanitizer,
		dispatcher: dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// cleanFields はテキスト項目をサニタイズし、値を検証する。
func (m *Manager) cleanFields(f model.ItemFields) (model.ItemFields, error) {
	f.Name = security.CleanPtr(m.sanitizer, f.Name)
	f.Category = security.CleanPtr(m.sanitizer, f.Category)
	f.Note = security.CleanPtr(m.sanitizer, f.Note)

	if f.Name != nil {
		if *f.Name == "" {
			return f, model.NewValidationError("nameは空にできません")
		}
		if utf8.RuneCountInString(*f.Name) > maxNameLength {
			return f, model.NewValidationError(fmt.Sprintf("nameは%d文字以内で指定してください", maxNameLength))
		}
	}
	if f.Category != nil && utf8.RuneCountInString(*f.Category) > maxCategoryLength {
		return f, model.NewValidationError(fmt.Sprintf("categoryは%d文字以内で指定してください", maxCategoryLength))
	}
	if f.Quantity != nil && *f.Quantity < 1 {
		return f, model.NewValidationError("quantityは1以上で指定してください")
	}
	return f, nil
}

// requireMember はactorがチームの現メンバーであることを確認する。
func (m *Manager) requireMember(ctx context.Context, teamID, actor string) (*model.Team, error) {
	team, err := m.teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("チームの取得に失敗しました: %w", err)
	}
	if team == nil {
		return nil, model.NewTeamNotFoundError(teamID)
	}
	if !team.HasMember(actor) {
		return nil, model.NewForbiddenError("チームのメンバーではありません")
	}
	return team, nil
}

// authorize はactorが物品を操作できるかを確認する。
func (m *Manager) authorize(ctx context.Context, actor string, item *model.Item) error {
	if item.IsTeamScoped() {
		_, err := m.requireMember(ctx, *item.TeamID, actor)
		return err
	}
	if item.OwnerOpenID != actor {
		return model.NewForbiddenError("この物品を操作する権限がありません")
	}
	return nil
}

// loadActive は未削除の物品を取得し、権限を確認する。
// 論理削除済みの物品は存在しないものとして扱う。
func (m *Manager) loadActive(ctx context.Context, actor, id string) (*model.Item, error) {
	item, err := m.items.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("物品の取得に失敗しました: %w", err)
	}
	if item == nil || item.Deleted {
		return nil, model.NewItemNotFoundError(id)
	}
	if err := m.authorize(ctx, actor, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Get は物品を返す。
func (m *Manager) Get(ctx context.Context, actor, id string) (*model.Item, error) {
	return m.loadActive(ctx, actor, id)
}

// List はチーム物品（teamIDが空でない場合）または個人物品の一覧を返す。
func (m *Manager) List(ctx context.Context, actor, teamID string) ([]*model.Item, error) {
	var (
		items []*model.Item
		err   error
	)
	if teamID != "" {
		if _, err := m.requireMember(ctx, teamID, actor); err != nil {
			return nil, err
		}
		items, err = m.items.ListActiveByTeam(ctx, teamID)
	} else {
		items, err = m.items.ListActiveByOwner(ctx, actor)
	}
	if err != nil {
		return nil, fmt.Errorf("物品一覧の取得に失敗しました: %w", err)
	}
	if items == nil {
		items = []*model.Item{}
	}
	return items, nil
}

// Update は指定された項目のみを更新する。チームの付け替えはできない。
func (m *Manager) Update(ctx context.Context, actor, id string, fields model.ItemFields) (*model.Item, error) {
	cleaned, err := m.cleanFields(fields)
	if err != nil {
		return nil, err
	}

	item, err := m.loadActive(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	cleaned.ApplyTo(item)
	item.UpdatedAt = m.now()

	if err := m.items.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("物品の更新に失敗しました: %w", err)
	}
	return item, nil
}

// Delete は物品を論理削除する。データは保持される。
func (m *Manager) Delete(ctx context.Context, actor, id string) error {
	item, err := m.loadActive(ctx, actor, id)
	if err != nil {
		return err
	}

	item.MarkDeleted(actor, m.now())
	if err := m.items.Update(ctx, item); err != nil {
		return fmt.Errorf("物品の削除に失敗しました: %w", err)
	}

	m.logger.Info("物品を削除しました",
		slog.String("item_id", id),
		slog.String("deleted_by", actor),
	)
	return nil
}

// Unnotify は通知済み状態を解除し、次回のスイープで再通知の対象にする。
func (m *Manager) Unnotify(ctx context.Context, actor, id string) error {
	if _, err := m.loadActive(ctx, actor, id); err != nil {
		return err
	}
	if err := m.items.SetNotifiedAt(ctx, id, nil); err != nil {
		return fmt.Errorf("通知状態の解除に失敗しました: %w", err)
	}
	return nil
}

// Notify はactorが所有する未削除の物品を通知済みにする。
// sendがtrueかつ送信が有効な場合、期限を解釈できる物品は所有者宛てに送信してから記録する。
// 送信に失敗した時点で中断し、それ以前に記録した物品はそのまま残る。
func (m *Manager) Notify(ctx context.Context, actor string, ids []string, send bool) (*NotifyResult, error) {
	result := &NotifyResult{}
	if len(ids) == 0 {
		return result, nil
	}

	items, err := m.items.ListActiveByIDsForOwner(ctx, actor, ids)
	if err != nil {
		return nil, fmt.Errorf("物品の取得に失敗しました: %w", err)
	}

	for _, item := range items {
		if send && m.dispatcher != nil {
			if expireAt, err := reminder.ParseExpiry(item.ExpireDate); err == nil {
				due := reminder.DueItem{
					Candidate: model.ReminderCandidate{
						ItemID:      item.ID,
						OwnerOpenID: actor,
						Name:        item.Name,
						ExpireDate:  item.ExpireDate,
					},
					ExpireAt: expireAt,
				}
				if err := m.dispatcher.Dispatch(ctx, due); err != nil {
					return result, gatewayError(err)
				}
				result.Sent++
			}
		}

		now := m.now()
		if err := m.items.SetNotifiedAt(ctx, item.ID, &now); err != nil {
			return result, fmt.Errorf("通知状態の記録に失敗しました: %w", err)
		}
		result.Notified++
	}

	return result, nil
}

// gatewayError は送信エラーをAPIErrorに変換する。
func gatewayError(err error) error {
	if wechat.IsConfigError(err) {
		return model.NewGatewayNotConfiguredError()
	}
	return model.NewGatewayFailedError(err.Error())
}
