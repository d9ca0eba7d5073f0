package team

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/hitoshi/displaydate/internal/model"
	"github.com/hitoshi/displaydate/internal/repository"
)

// fakeTeamRepo はTeamRepositoryのインメモリ実装。
// InTxは作業用コピーに対して操作し、fnが成功した場合のみ反映する。
type fakeTeamRepo struct {
	mu     sync.Mutex
	teams  map[string]*model.Team
	order  []string
	locked []string
}

func newFakeTeamRepo(teams ...*model.Team) *fakeTeamRepo {
	r := &fakeTeamRepo{teams: make(map[string]*model.Team)}
	for _, t := range teams {
		r.teams[t.ID] = cloneTeam(t)
		r.order = append(r.order, t.ID)
	}
	return r
}

func cloneTeam(t *model.Team) *model.Team {
	c := *t
	c.MemberOpenIDs = slices.Clone(t.MemberOpenIDs)
	return &c
}

func (r *fakeTeamRepo) get(id string) *model.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.teams[id]; ok {
		return cloneTeam(t)
	}
	return nil
}

func (r *fakeTeamRepo) all() []*model.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Team
	for _, id := range r.order {
		if t, ok := r.teams[id]; ok {
			out = append(out, cloneTeam(t))
		}
	}
	return out
}

// affiliations はopenidがオーナーまたはメンバーのチーム数を返す。
func (r *fakeTeamRepo) affiliations(openid string) int {
	n := 0
	for _, t := range r.all() {
		if t.OwnerOpenID == openid || t.HasMember(openid) {
			n++
		}
	}
	return n
}

func (r *fakeTeamRepo) FindByID(ctx context.Context, id string) (*model.Team, error) {
	return r.get(id), nil
}

func (r *fakeTeamRepo) ListByOwner(ctx context.Context, openid string) ([]*model.Team, error) {
	var out []*model.Team
	for _, t := range r.all() {
		if t.OwnerOpenID == openid {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) ListByMember(ctx context.Context, openid string) ([]*model.Team, error) {
	var out []*model.Team
	for _, t := range r.all() {
		if t.HasMember(openid) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) InTx(ctx context.Context, fn func(tx repository.TeamTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	work := &fakeTeamTx{teams: make(map[string]*model.Team), order: slices.Clone(r.order)}
	for id, t := range r.teams {
		work.teams[id] = cloneTeam(t)
	}

	if err := fn(work); err != nil {
		return err
	}

	r.teams = work.teams
	r.order = work.order
	r.locked = append(r.locked, work.locked...)
	return nil
}

type fakeTeamTx struct {
	teams  map[string]*model.Team
	order  []string
	locked []string
}

func (tx *fakeTeamTx) LockUser(ctx context.Context, openid string) error {
	tx.locked = append(tx.locked, openid)
	return nil
}

func (tx *fakeTeamTx) FindByIDForUpdate(ctx context.Context, id string) (*model.Team, error) {
	if t, ok := tx.teams[id]; ok {
		return cloneTeam(t), nil
	}
	return nil, nil
}

func (tx *fakeTeamTx) FindByInviteCodeForUpdate(ctx context.Context, code string) (*model.Team, error) {
	for _, t := range tx.teams {
		if t.InviteCode == code {
			return cloneTeam(t), nil
		}
	}
	return nil, nil
}

func (tx *fakeTeamTx) ListAffiliatedForUpdate(ctx context.Context, openid string) ([]*model.Team, error) {
	var out []*model.Team
	for _, t := range tx.teams {
		if t.OwnerOpenID == openid || t.HasMember(openid) {
			out = append(out, cloneTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (tx *fakeTeamTx) codeTaken(code, exceptID string) bool {
	for id, t := range tx.teams {
		if id != exceptID && t.InviteCode == code {
			return true
		}
	}
	return false
}

func (tx *fakeTeamTx) Create(ctx context.Context, team *model.Team) error {
	if tx.codeTaken(team.InviteCode, "") {
		return repository.ErrInviteCodeTaken
	}
	tx.teams[team.ID] = cloneTeam(team)
	tx.order = append(tx.order, team.ID)
	return nil
}

func (tx *fakeTeamTx) Update(ctx context.Context, team *model.Team) error {
	if tx.codeTaken(team.InviteCode, team.ID) {
		return repository.ErrInviteCodeTaken
	}
	tx.teams[team.ID] = cloneTeam(team)
	return nil
}

func (tx *fakeTeamTx) Delete(ctx context.Context, id string) error {
	delete(tx.teams, id)
	return nil
}

var (
	_ repository.TeamRepository = (*fakeTeamRepo)(nil)
	_ repository.TeamTx         = (*fakeTeamTx)(nil)
)
