// Package team はチームとメンバーシップ管理のドメインロジックを提供する。
// ユーザーは同時に1つのチームにしか所属できない。
package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hitoshi/displaydate/internal/model"
	"github.com/hitoshi/displaydate/internal/repository"
	"github.com/hitoshi/displaydate/internal/security"
)

const (
	// maxInviteCodeAttempts は生成した招待コードが衝突した場合の最大試行回数。
	maxInviteCodeAttempts = 5
	maxNameLength         = 255
	maxInviteCodeLength   = 64
)

// Config はチーム管理の設定。
type Config struct {
	InviteCodeLength int
	DefaultQuota     int
}

// CreateInput はチーム作成の入力。
// InviteCodeが空の場合は自動生成し、Quotaがnilの場合はデフォルト値を使用する。
type CreateInput struct {
	Name       string
	InviteCode string
	Quota      *int
}

// Manager はチームのメンバーシップ遷移を管理する。
// 所属を変更する操作は、対象ユーザーのロックを取得したトランザクション内で
// 「他チームからの退去 → 追加」の順に行う。
type Manager struct {
	repo         repository.TeamRepository
	sanitizer    security.TextSanitizer
	logger       *slog.Logger
	config       Config
	generateCode func(length int) (string, error)
	now          func() time.Time
}

// NewManager はManagerの新しいインスタンスを生成する。
func NewManager(
	repo repository.TeamRepository,
	sanitizer security.TextSanitizer,
	logger *slog.Logger,
	config Config,
) *Manager {
	if config.DefaultQuota <= 0 {
		config.DefaultQuota = model.DefaultTeamQuota
	}
	return &Manager{
		repo:         repo,
		sanitizer:    sanitizer,
		logger:       logger,
		config:       config,
		generateCode: GenerateInviteCode,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (m *Manager) cleanName(raw string) (string, error) {
	name := m.sanitizer.Clean(raw)
	if name == "" {
		return "", model.NewValidationError("チーム名は必須です")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", model.NewValidationError(fmt.Sprintf("チーム名は%d文字以内で指定してください", maxNameLength))
	}
	return name, nil
}

// Create はactorをオーナーとするチームを作成する。
// actorが既に他のチームに関わっている場合、オーナーのチームは削除され、
// メンバーとして参加しているチームからは退去する。
func (m *Manager) Create(ctx context.Context, actor string, in CreateInput) (*model.Team, error) {
	name, err := m.cleanName(in.Name)
	if err != nil {
		return nil, err
	}

	quota := m.config.DefaultQuota
	if in.Quota != nil {
		if *in.Quota < 1 {
			return nil, model.NewValidationError("quotaは1以上で指定してください")
		}
		quota = *in.Quota
	}

	code := strings.TrimSpace(in.InviteCode)
	if len(code) > maxInviteCodeLength {
		return nil, model.NewValidationError(fmt.Sprintf("招待コードは%d文字以内で指定してください", maxInviteCodeLength))
	}
	generated := code == ""

	for attempt := 1; attempt <= maxInviteCodeAttempts; attempt++ {
		if generated {
			if code, err = m.generateCode(m.config.InviteCodeLength); err != nil {
				return nil, err
			}
		}

		now := m.now()
		team := &model.Team{
			ID:            uuid.NewString(),
			Name:          name,
			OwnerOpenID:   actor,
			MemberOpenIDs: []string{actor},
			InviteCode:    code,
			Quota:         quota,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err = m.repo.InTx(ctx, func(tx repository.TeamTx) error {
			if err := tx.LockUser(ctx, actor); err != nil {
				return err
			}
			if err := m.evict(ctx, tx, actor, ""); err != nil {
				return err
			}
			return tx.Create(ctx, team)
		})
		if errors.Is(err, repository.ErrInviteCodeTaken) {
			if !generated {
				return nil, model.NewInviteCodeTakenError()
			}
			m.logger.Warn("招待コードが衝突したため再生成します", slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}

		m.logger.Info("チームを作成しました",
			slog.String("team_id", team.ID),
			slog.String("owner_openid", actor),
		)
		return team, nil
	}

	return nil, fmt.Errorf("招待コードの生成に%d回失敗しました", maxInviteCodeAttempts)
}

// Join は招待コードのチームにactorを参加させる。
// 既にメンバーの場合は何もせずチームを返す。
func (m *Manager) Join(ctx context.Context, actor, inviteCode string) (*model.Team, error) {
	code := strings.TrimSpace(inviteCode)
	if code == "" {
		return nil, model.NewValidationError("招待コードは必須です")
	}

	var joined *model.Team
	err := m.repo.InTx(ctx, func(tx repository.TeamTx) error {
		if err := tx.LockUser(ctx, actor); err != nil {
			return err
		}

		team, err := tx.FindByInviteCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if team == nil {
			return model.NewInviteCodeNotFoundError()
		}

		if team.HasMember(actor) {
			joined = team
			return nil
		}
		if team.IsFull() {
			return model.NewQuotaExceededError(team.Quota)
		}

		if err := m.evict(ctx, tx, actor, team.ID); err != nil {
			return err
		}

		team.AddMember(actor)
		team.UpdatedAt = m.now()
		if err := tx.Update(ctx, team); err != nil {
			return err
		}
		joined = team
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// evict はactorをkeepTeamID以外の全チームから外す。
// オーナーのチームは削除し、メンバーとして参加しているチームからは退去させる。
func (m *Manager) evict(ctx context.Context, tx repository.TeamTx, actor, keepTeamID string) error {
	teams, err := tx.ListAffiliatedForUpdate(ctx, actor)
	if err != nil {
		return err
	}

	for _, t := range teams {
		if t.ID == keepTeamID {
			continue
		}
		if t.IsOwner(actor) {
			if err := tx.Delete(ctx, t.ID); err != nil {
				return err
			}
			m.logger.Info("所属変更のためオーナーのチームを削除しました",
				slog.String("team_id", t.ID),
				slog.String("owner_openid", actor),
			)
			continue
		}
		if t.RemoveMember(actor) {
			t.UpdatedAt = m.now()
			if err := tx.Update(ctx, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// withOwnedTeam はオーナー権限を確認した上でfnをトランザクション内で実行する。
func (m *Manager) withOwnedTeam(ctx context.Context, actor, teamID string, fn func(tx repository.TeamTx, team *model.Team) error) error {
	return m.repo.InTx(ctx, func(tx repository.TeamTx) error {
		team, err := tx.FindByIDForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		if team == nil {
			return model.NewTeamNotFoundError(teamID)
		}
		if !team.IsOwner(actor) {
			return model.NewOwnerOnlyError()
		}
		return fn(tx, team)
	})
}

// Rename はチーム名を変更する。オーナーのみ実行できる。
func (m *Manager) Rename(ctx context.Context, actor, teamID, name string) (*model.Team, error) {
	cleaned, err := m.cleanName(name)
	if err != nil {
		return nil, err
	}

	var renamed *model.Team
	err = m.withOwnedTeam(ctx, actor, teamID, func(tx repository.TeamTx, team *model.Team) error {
		team.Name = cleaned
		team.UpdatedAt = m.now()
		if err := tx.Update(ctx, team); err != nil {
			return err
		}
		renamed = team
		return nil
	})
	if err != nil {
		return nil, err
	}
	return renamed, nil
}

// RegenerateInvite は招待コードを再生成する。旧コードは即座に無効になる。
func (m *Manager) RegenerateInvite(ctx context.Context, actor, teamID string) (*model.Team, error) {
	for attempt := 1; attempt <= maxInviteCodeAttempts; attempt++ {
		code, err := m.generateCode(m.config.InviteCodeLength)
		if err != nil {
			return nil, err
		}

		var updated *model.Team
		err = m.withOwnedTeam(ctx, actor, teamID, func(tx repository.TeamTx, team *model.Team) error {
			team.InviteCode = code
			team.UpdatedAt = m.now()
			if err := tx.Update(ctx, team); err != nil {
				return err
			}
			updated = team
			return nil
		})
		if errors.Is(err, repository.ErrInviteCodeTaken) {
			m.logger.Warn("招待コードが衝突したため再生成します", slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, fmt.Errorf("招待コードの生成に%d回失敗しました", maxInviteCodeAttempts)
}

// RemoveMember はメンバーをチームから外す。オーナーのみ実行でき、オーナー自身は外せない。
// 対象がメンバーでない場合は何もしない。
func (m *Manager) RemoveMember(ctx context.Context, actor, teamID, target string) (*model.Team, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, model.NewValidationError("member_openidは必須です")
	}

	var result *model.Team
	err := m.withOwnedTeam(ctx, actor, teamID, func(tx repository.TeamTx, team *model.Team) error {
		if team.IsOwner(target) {
			return model.NewOwnerCannotBeRemovedError()
		}
		if team.RemoveMember(target) {
			team.UpdatedAt = m.now()
			if err := tx.Update(ctx, team); err != nil {
				return err
			}
		}
		result = team
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Leave はactorをチームから退去させる。オーナーは退去できない（チーム削除を使う）。
// actorがメンバーでない場合は何もしない。
func (m *Manager) Leave(ctx context.Context, actor, teamID string) error {
	return m.repo.InTx(ctx, func(tx repository.TeamTx) error {
		if err := tx.LockUser(ctx, actor); err != nil {
			return err
		}
		team, err := tx.FindByIDForUpdate(ctx, teamID)
		if err != nil {
			return err
		}
		if team == nil {
			return model.NewTeamNotFoundError(teamID)
		}
		if team.IsOwner(actor) {
			return model.NewOwnerCannotLeaveError()
		}
		if !team.RemoveMember(actor) {
			return nil
		}
		team.UpdatedAt = m.now()
		return tx.Update(ctx, team)
	})
}

// Delete はチームを削除する。オーナーのみ実行でき、チームの物品も削除される。
func (m *Manager) Delete(ctx context.Context, actor, teamID string) error {
	err := m.withOwnedTeam(ctx, actor, teamID, func(tx repository.TeamTx, team *model.Team) error {
		return tx.Delete(ctx, team.ID)
	})
	if err != nil {
		return err
	}
	m.logger.Info("チームを削除しました",
		slog.String("team_id", teamID),
		slog.String("owner_openid", actor),
	)
	return nil
}

// Get はチームを返す。メンバー以外は参照できない。
func (m *Manager) Get(ctx context.Context, actor, teamID string) (*model.Team, error) {
	team, err := m.repo.FindByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, model.NewTeamNotFoundError(teamID)
	}
	if !team.HasMember(actor) {
		return nil, model.NewForbiddenError("チームのメンバーではありません")
	}
	return team, nil
}

// List はactorがオーナー（created）またはメンバー（joined）のチームを返す。
// listTypeが空の場合はcreatedとして扱う。
func (m *Manager) List(ctx context.Context, actor string, listType model.TeamListType) ([]*model.Team, error) {
	var (
		teams []*model.Team
		err   error
	)
	switch listType {
	case "", model.TeamListCreated:
		teams, err = m.repo.ListByOwner(ctx, actor)
	case model.TeamListJoined:
		teams, err = m.repo.ListByMember(ctx, actor)
	default:
		return nil, model.NewValidationError("typeはcreatedまたはjoinedを指定してください")
	}
	if err != nil {
		return nil, err
	}
	if teams == nil {
		teams = []*model.Team{}
	}
	return teams, nil
}
