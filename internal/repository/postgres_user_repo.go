package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/displaydate/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `openid, nickname, phone_number, avatar_url, reminder_days, created_at, updated_at`

// scanUser は1行をUserに読み込む。NULLのプロフィール項目は空文字になる。
func scanUser(s rowScanner) (*model.User, error) {
	user := &model.User{}
	var nickname, phone, avatar sql.NullString
	if err := s.Scan(&user.OpenID, &nickname, &phone, &avatar, &user.ReminderDays, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Nickname = nickname.String
	user.PhoneNumber = phone.String
	user.AvatarURL = avatar.String
	return user, nil
}

// FindByOpenID は指定openidのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByOpenID(ctx context.Context, openid string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE openid = $1`, openid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by openid: %w", err)
	}
	return user, nil
}

// Ensure はユーザーを取得し、存在しなければreminder_daysをデフォルト値として作成する。
// 既存行は更新しない。同時実行でも一意制約により1行のみになる。
func (r *PostgresUserRepo) Ensure(ctx context.Context, openid string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`INSERT INTO users (openid, reminder_days) VALUES ($1, $2)
		 ON CONFLICT (openid) DO UPDATE SET openid = EXCLUDED.openid
		 RETURNING `+userColumns,
		openid, model.DefaultReminderDays,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return user, nil
}

// UpdateProfile はプロフィール項目とreminder_daysを更新する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET nickname = $2, phone_number = $3, avatar_url = $4,
		        reminder_days = $5, updated_at = $6
		 WHERE openid = $1`,
		user.OpenID, nullString(user.Nickname), nullString(user.PhoneNumber),
		nullString(user.AvatarURL), user.ReminderDays, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", user.OpenID)
	}
	return nil
}

// nullString は空文字列をNULLとして扱うsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
