package item

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/displaydate/internal/model"
	"github.com/hitoshi/displaydate/internal/repository"
)

// fakeItemRepo はItemRepositoryのインメモリ実装。
type fakeItemRepo struct {
	mu    sync.Mutex
	items map[string]*model.Item

	updateErr error
}

func newFakeItemRepo(items ...*model.Item) *fakeItemRepo {
	r := &fakeItemRepo{items: make(map[string]*model.Item)}
	for _, it := range items {
		r.items[it.ID] = cloneItem(it)
	}
	return r
}

func cloneItem(it *model.Item) *model.Item {
	c := *it
	return &c
}

func sameTeam(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *fakeItemRepo) get(id string) *model.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.items[id]; ok {
		return cloneItem(it)
	}
	return nil
}

func (r *fakeItemRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *fakeItemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	return r.get(id), nil
}

func (r *fakeItemRepo) FindLatestDeleted(ctx context.Context, owner string, teamID *string, name string) (*model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.Item
	for _, it := range r.items {
		if !it.Deleted || it.OwnerOpenID != owner || it.Name != name || !sameTeam(it.TeamID, teamID) {
			continue
		}
		if latest == nil || it.DeletedAt.After(*latest.DeletedAt) {
			latest = it
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneItem(latest), nil
}

func (r *fakeItemRepo) Create(ctx context.Context, item *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *fakeItemRepo) Update(ctx context.Context, item *model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *fakeItemRepo) list(match func(*model.Item) bool) []*model.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Item
	for _, it := range r.items {
		if !it.Deleted && match(it) {
			out = append(out, cloneItem(it))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeItemRepo) ListActiveByOwner(ctx context.Context, owner string) ([]*model.Item, error) {
	return r.list(func(it *model.Item) bool { return it.OwnerOpenID == owner && it.TeamID == nil }), nil
}

func (r *fakeItemRepo) ListActiveByTeam(ctx context.Context, teamID string) ([]*model.Item, error) {
	return r.list(func(it *model.Item) bool { return it.TeamID != nil && *it.TeamID == teamID }), nil
}

func (r *fakeItemRepo) ListActiveByIDsForOwner(ctx context.Context, owner string, ids []string) ([]*model.Item, error) {
	return r.list(func(it *model.Item) bool { return it.OwnerOpenID == owner && slices.Contains(ids, it.ID) }), nil
}

func (r *fakeItemRepo) SetNotifiedAt(ctx context.Context, id string, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if it, ok := r.items[id]; ok {
		it.NotifiedAt = at
	}
	return nil
}

// fakeTeamFinder はTeamFinderのモック実装。
type fakeTeamFinder struct {
	teams map[string]*model.Team
}

func newFakeTeamFinder(teams ...*model.Team) *fakeTeamFinder {
	f := &fakeTeamFinder{teams: make(map[string]*model.Team)}
	for _, t := range teams {
		f.teams[t.ID] = t
	}
	return f
}

func (f *fakeTeamFinder) FindByID(ctx context.Context, id string) (*model.Team, error) {
	return f.teams[id], nil
}

var _ repository.ItemRepository = (*fakeItemRepo)(nil)
