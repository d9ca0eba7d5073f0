// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/displaydate/internal/model"
	"github.com/hitoshi/displaydate/internal/repository"
	"github.com/hitoshi/displaydate/internal/security"
)

const (
	maxNicknameLength  = 64
	maxPhoneLength     = 32
	maxAvatarURLLength = 1024

	// maxReminderDays は通知リード日数の上限。
	maxReminderDays = 365
)

// Service はユーザー管理のサービス層。
// ユーザー行は初回アクセス時に遅延作成される。
type Service struct {
	userRepo  repository.UserRepository
	sanitizer security.TextSanitizer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sanitizer security.TextSanitizer, logger *slog.Logger) *Service {
	return &Service{
		userRepo:  userRepo,
		sanitizer: sanitizer,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Me は認証済みユーザーのプロフィールを返す。存在しなければデフォルト値で作成する。
func (s *Service) Me(ctx context.Context, openid string) (*model.User, error) {
	user, err := s.userRepo.Ensure(ctx, openid)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// UpdateProfile は指定された項目のみを更新する。
func (s *Service) UpdateProfile(ctx context.Context, openid string, update model.UserProfileUpdate) (*model.User, error) {
	update.Nickname = security.CleanPtr(s.sanitizer, update.Nickname)
	if err := validateProfile(update); err != nil {
		return nil, err
	}

	user, err := s.userRepo.Ensure(ctx, openid)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	if update.Nickname != nil {
		user.Nickname = *update.Nickname
	}
	if update.PhoneNumber != nil {
		user.PhoneNumber = *update.PhoneNumber
	}
	if update.AvatarURL != nil {
		user.AvatarURL = *update.AvatarURL
	}
	if update.ReminderDays != nil {
		user.ReminderDays = *update.ReminderDays
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	if update.ReminderDays != nil {
		s.logger.Info("通知リード日数を変更しました",
			slog.String("openid", openid),
			slog.Int("reminder_days", user.ReminderDays),
		)
	}
	return user, nil
}

func validateProfile(update model.UserProfileUpdate) error {
	if update.Nickname != nil && utf8.RuneCountInString(*update.Nickname) > maxNicknameLength {
		return model.NewValidationError(fmt.Sprintf("nicknameは%d文字以内で指定してください", maxNicknameLength))
	}
	if update.PhoneNumber != nil && len(*update.PhoneNumber) > maxPhoneLength {
		return model.NewValidationError(fmt.Sprintf("phone_numberは%d文字以内で指定してください", maxPhoneLength))
	}
	if update.AvatarURL != nil && len(*update.AvatarURL) > maxAvatarURLLength {
		return model.NewValidationError("avatar_urlが長すぎます")
	}
	if update.ReminderDays != nil {
		days := *update.ReminderDays
		if days < 0 || days > maxReminderDays {
			return model.NewValidationError(fmt.Sprintf("reminder_daysは0以上%d以下で指定してください", maxReminderDays))
		}
	}
	return nil
}
