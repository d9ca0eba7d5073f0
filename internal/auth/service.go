// Package auth はミニプログラムのログインとアクセストークンの発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/displaydate/internal/model"
	"github.com/hitoshi/displaydate/internal/repository"
	"github.com/hitoshi/displaydate/internal/wechat"
)

// SessionResolver はログインコードをopenidに交換するインターフェース。
type SessionResolver interface {
	Code2Session(ctx context.Context, code string) (*wechat.Session, error)
}

// DevSessionResolver はコードをそのままopenidとして扱う開発用のSessionResolver。
// ゲートウェイの認証情報が未設定の環境でのみ使用する。
type DevSessionResolver struct{}

// Code2Session はcodeをopenidとしたSessionを返す。
func (DevSessionResolver) Code2Session(ctx context.Context, code string) (*wechat.Session, error) {
	return &wechat.Session{OpenID: code}, nil
}

// LoginResult はログイン成功時の応答。
type LoginResult struct {
	Token     string
	OpenID    string
	ExpiresAt time.Time
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	resolver SessionResolver
	userRepo repository.UserRepository
	tokens   *TokenManager
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	resolver SessionResolver,
	userRepo repository.UserRepository,
	tokens *TokenManager,
	logger *slog.Logger,
) *Service {
	return &Service{
		resolver: resolver,
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// Login はログインコードを検証し、ユーザーを遅延作成した上でトークンを発行する。
func (s *Service) Login(ctx context.Context, code string) (*LoginResult, error) {
	if code == "" {
		return nil, model.NewValidationError("codeは必須です")
	}

	session, err := s.resolver.Code2Session(ctx, code)
	if err != nil {
		switch {
		case wechat.IsConfigError(err):
			return nil, model.NewGatewayNotConfiguredError()
		case wechat.IsGatewayError(err):
			// 無効・使用済みのコードはゲートウェイがエラーコードで返す
			return nil, model.NewValidationError("ログインコードが無効です")
		default:
			return nil, model.NewGatewayFailedError(err.Error())
		}
	}

	user, err := s.userRepo.Ensure(ctx, session.OpenID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(user.OpenID)
	if err != nil {
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	s.logger.Info("user logged in", slog.String("openid", user.OpenID))

	return &LoginResult{
		Token:     token,
		OpenID:    user.OpenID,
		ExpiresAt: expiresAt,
	}, nil
}
