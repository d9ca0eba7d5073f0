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

// uniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolation = "23505"

// querier は*sql.DBと*sql.Txの共通インターフェース。
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresTeamRepo はPostgreSQLを使用したチームリポジトリ。
type PostgresTeamRepo struct {
	db *sql.DB
}

// NewPostgresTeamRepo はPostgresTeamRepoを生成する。
func NewPostgresTeamRepo(db *sql.DB) *PostgresTeamRepo {
	return &PostgresTeamRepo{db: db}
}

const selectTeamColumns = `SELECT id, name, owner_openid, member_openids, invite_code, quota, created_at, updated_at FROM teams`

func scanTeam(s rowScanner) (*model.Team, error) {
	team := &model.Team{}
	var members pq.StringArray
	if err := s.Scan(
		&team.ID, &team.Name, &team.OwnerOpenID, &members,
		&team.InviteCode, &team.Quota, &team.CreatedAt, &team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	team.MemberOpenIDs = []string(members)
	return team, nil
}

func findTeam(ctx context.Context, q querier, query string, args ...any) (*model.Team, error) {
	team, err := scanTeam(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("チームの取得に失敗しました: %w", err)
	}
	return team, nil
}

func listTeams(ctx context.Context, q querier, query string, args ...any) ([]*model.Team, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("チーム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var teams []*model.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("チーム行のスキャンに失敗しました: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("チーム行の反復処理に失敗しました: %w", err)
	}
	return teams, nil
}

// FindByID は指定IDのチームを取得する。見つからない場合はnilを返す。
func (r *PostgresTeamRepo) FindByID(ctx context.Context, id string) (*model.Team, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return findTeam(ctx, r.db, selectTeamColumns+` WHERE id = $1`, id)
}

// ListByOwner は指定ユーザーがオーナーのチームを作成日時順に返す。
func (r *PostgresTeamRepo) ListByOwner(ctx context.Context, openid string) ([]*model.Team, error) {
	return listTeams(ctx, r.db, selectTeamColumns+` WHERE owner_openid = $1 ORDER BY created_at`, openid)
}

// ListByMember は指定ユーザーがメンバーに含まれるチームを作成日時順に返す。
func (r *PostgresTeamRepo) ListByMember(ctx context.Context, openid string) ([]*model.Team, error) {
	return listTeams(ctx, r.db, selectTeamColumns+` WHERE $1 = ANY(member_openids) ORDER BY created_at`, openid)
}

// InTx はfnを単一のトランザクション内で実行する。
func (r *PostgresTeamRepo) InTx(ctx context.Context, fn func(tx TeamTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&postgresTeamTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// postgresTeamTx はトランザクションに束縛されたTeamTxの実装。
type postgresTeamTx struct {
	tx *sql.Tx
}

// LockUser はopenidのハッシュをキーとするトランザクションスコープのアドバイザリロックを取得する。
func (t *postgresTeamTx) LockUser(ctx context.Context, openid string) error {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, openid); err != nil {
		return fmt.Errorf("ユーザーロックの取得に失敗しました: %w", err)
	}
	return nil
}

func (t *postgresTeamTx) FindByIDForUpdate(ctx context.Context, id string) (*model.Team, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return findTeam(ctx, t.tx, selectTeamColumns+` WHERE id = $1 FOR UPDATE`, id)
}

func (t *postgresTeamTx) FindByInviteCodeForUpdate(ctx context.Context, code string) (*model.Team, error) {
	return findTeam(ctx, t.tx, selectTeamColumns+` WHERE invite_code = $1 FOR UPDATE`, code)
}

func (t *postgresTeamTx) ListAffiliatedForUpdate(ctx context.Context, openid string) ([]*model.Team, error) {
	return listTeams(ctx, t.tx,
		selectTeamColumns+`
		 WHERE owner_openid = $1 OR $1 = ANY(member_openids)
		 ORDER BY created_at
		 FOR UPDATE`,
		openid,
	)
}

func (t *postgresTeamTx) Create(ctx context.Context, team *model.Team) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO teams (id, name, owner_openid, member_openids, invite_code, quota, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		team.ID, team.Name, team.OwnerOpenID, pq.Array(team.MemberOpenIDs),
		team.InviteCode, team.Quota, team.CreatedAt, team.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrInviteCodeTaken
	}
	if err != nil {
		return fmt.Errorf("チームの作成に失敗しました: %w", err)
	}
	return nil
}

func (t *postgresTeamTx) Update(ctx context.Context, team *model.Team) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE teams SET name = $2, member_openids = $3, invite_code = $4, updated_at = $5
		 WHERE id = $1`,
		team.ID, team.Name, pq.Array(team.MemberOpenIDs), team.InviteCode, team.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrInviteCodeTaken
	}
	if err != nil {
		return fmt.Errorf("チームの更新に失敗しました: %w", err)
	}
	return nil
}

func (t *postgresTeamTx) Delete(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("チームの削除に失敗しました: %w", err)
	}
	return nil
}

// isUniqueViolation はerrが一意制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// compile-time interface check
var (
	_ TeamRepository = (*PostgresTeamRepo)(nil)
	_ TeamTx         = (*postgresTeamTx)(nil)
)
