package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/displaydate/internal/model"
)

func TestPostgresTeamRepo_ImplementsInterface(t *testing.T) {
	var _ TeamRepository = (*PostgresTeamRepo)(nil)
}

func newTestTeam(owner, code string, now time.Time) *model.Team {
	return &model.Team{
		ID:            uuid.NewString(),
		Name:          "家族",
		OwnerOpenID:   owner,
		MemberOpenIDs: []string{owner},
		InviteCode:    code,
		Quota:         model.DefaultTeamQuota,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPostgresTeamRepo_CreateFindAndList(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewPostgresTeamRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	team := newTestTeam("owner-1", "ABCD1234", now)
	team.MemberOpenIDs = append(team.MemberOpenIDs, "member-1")

	err := repo.InTx(ctx, func(tx TeamTx) error {
		return tx.Create(ctx, team)
	})
	if err != nil {
		t.Fatalf("InTx(Create) failed: %v", err)
	}

	got, err := repo.FindByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected team, got nil")
	}
	if len(got.MemberOpenIDs) != 2 || got.MemberOpenIDs[0] != "owner-1" || got.MemberOpenIDs[1] != "member-1" {
		t.Errorf("MemberOpenIDs = %v, want [owner-1 member-1]", got.MemberOpenIDs)
	}

	owned, err := repo.ListByOwner(ctx, "owner-1")
	if err != nil || len(owned) != 1 {
		t.Errorf("ListByOwner = %v, %v; want 1 team", owned, err)
	}
	joined, err := repo.ListByMember(ctx, "member-1")
	if err != nil || len(joined) != 1 {
		t.Errorf("ListByMember = %v, %v; want 1 team", joined, err)
	}

	err = repo.InTx(ctx, func(tx TeamTx) error {
		found, err := tx.FindByInviteCodeForUpdate(ctx, "ABCD1234")
		if err != nil {
			return err
		}
		if found == nil || found.ID != team.ID {
			t.Errorf("FindByInviteCodeForUpdate = %+v, want %s", found, team.ID)
		}
		affiliated, err := tx.ListAffiliatedForUpdate(ctx, "member-1")
		if err != nil {
			return err
		}
		if len(affiliated) != 1 {
			t.Errorf("len(ListAffiliatedForUpdate) = %d, want 1", len(affiliated))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("InTx failed: %v", err)
	}
}

func TestPostgresTeamRepo_DuplicateInviteCode_ReturnsErrInviteCodeTaken(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewPostgresTeamRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.InTx(ctx, func(tx TeamTx) error {
		return tx.Create(ctx, newTestTeam("owner-1", "SAMECODE", now))
	}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	err := repo.InTx(ctx, func(tx TeamTx) error {
		return tx.Create(ctx, newTestTeam("owner-2", "SAMECODE", now))
	})
	if !errors.Is(err, ErrInviteCodeTaken) {
		t.Fatalf("err = %v, want ErrInviteCodeTaken", err)
	}
}

func TestPostgresTeamRepo_InTx_RollsBackOnError(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewPostgresTeamRepo(db)
	ctx := context.Background()
	team := newTestTeam("owner-1", "ROLLBACK", time.Now().UTC())

	sentinel := errors.New("abort")
	err := repo.InTx(ctx, func(tx TeamTx) error {
		if err := tx.Create(ctx, team); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}

	got, err := repo.FindByID(ctx, team.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got != nil {
		t.Error("team should not exist after rollback")
	}
}

func TestPostgresTeamRepo_Delete_CascadesItems(t *testing.T) {
	db := setupRepoTestDB(t)
	teams := NewPostgresTeamRepo(db)
	items := NewPostgresItemRepo(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	team := newTestTeam("owner-1", "CASCADE1", now)
	if err := teams.InTx(ctx, func(tx TeamTx) error { return tx.Create(ctx, team) }); err != nil {
		t.Fatalf("create team failed: %v", err)
	}

	item := newTestItem("owner-1", "醤油", now)
	item.TeamID = &team.ID
	if err := items.Create(ctx, item); err != nil {
		t.Fatalf("create item failed: %v", err)
	}

	if err := teams.InTx(ctx, func(tx TeamTx) error { return tx.Delete(ctx, team.ID) }); err != nil {
		t.Fatalf("delete team failed: %v", err)
	}

	got, err := items.FindByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if got != nil {
		t.Error("team item should be removed by cascade delete")
	}
}
