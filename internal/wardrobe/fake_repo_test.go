package wardrobe

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/hitoshi/displaydate/internal/model"
	"github.com/hitoshi/displaydate/internal/repository"
)

// fakeWardrobeRepo はWardrobeRepositoryのインメモリ実装。
// 分類名の一意制約と分類削除時のCASCADEを再現する。
type fakeWardrobeRepo struct {
	mu         sync.Mutex
	categories map[string]*model.WardrobeCategory
	items      map[string]*model.WardrobeItem
	outfits    map[string]*model.Outfit

	listErr error
}

func newFakeWardrobeRepo() *fakeWardrobeRepo {
	return &fakeWardrobeRepo{
		categories: make(map[string]*model.WardrobeCategory),
		items:      make(map[string]*model.WardrobeItem),
		outfits:    make(map[string]*model.Outfit),
	}
}

func (r *fakeWardrobeRepo) nameTaken(c *model.WardrobeCategory) bool {
	for _, other := range r.categories {
		if other.ID != c.ID && other.OwnerOpenID == c.OwnerOpenID && other.Name == c.Name {
			return true
		}
	}
	return false
}

func (r *fakeWardrobeRepo) ListCategories(ctx context.Context, owner string) ([]*model.WardrobeCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*model.WardrobeCategory
	for _, c := range r.categories {
		if c.OwnerOpenID != owner {
			continue
		}
		cc := *c
		for _, w := range r.items {
			if w.CategoryID == c.ID && !w.Deleted {
				cc.ItemCount++
			}
		}
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeWardrobeRepo) FindCategory(ctx context.Context, id string) (*model.WardrobeCategory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.categories[id]; ok {
		cc := *c
		return &cc, nil
	}
	return nil, nil
}

func (r *fakeWardrobeRepo) CreateCategory(ctx context.Context, c *model.WardrobeCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(c) {
		return repository.ErrCategoryNameTaken
	}
	cc := *c
	r.categories[c.ID] = &cc
	return nil
}

func (r *fakeWardrobeRepo) UpdateCategory(ctx context.Context, c *model.WardrobeCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(c) {
		return repository.ErrCategoryNameTaken
	}
	cc := *c
	r.categories[c.ID] = &cc
	return nil
}

func (r *fakeWardrobeRepo) DeleteCategory(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.categories, id)
	for itemID, w := range r.items {
		if w.CategoryID == id {
			delete(r.items, itemID)
		}
	}
	return nil
}

func (r *fakeWardrobeRepo) withCategoryName(w *model.WardrobeItem) *model.WardrobeItem {
	ww := *w
	if c, ok := r.categories[w.CategoryID]; ok {
		ww.CategoryName = c.Name
	}
	return &ww
}

func (r *fakeWardrobeRepo) ListItems(ctx context.Context, owner, categoryID string) ([]*model.WardrobeItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WardrobeItem
	for _, w := range r.items {
		if w.OwnerOpenID != owner || w.Deleted || (categoryID != "" && w.CategoryID != categoryID) {
			continue
		}
		out = append(out, r.withCategoryName(w))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeWardrobeRepo) FindItem(ctx context.Context, id string) (*model.WardrobeItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.items[id]; ok {
		return r.withCategoryName(w), nil
	}
	return nil, nil
}

func (r *fakeWardrobeRepo) CreateItem(ctx context.Context, w *model.WardrobeItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ww := *w
	r.items[w.ID] = &ww
	return nil
}

func (r *fakeWardrobeRepo) UpdateItem(ctx context.Context, w *model.WardrobeItem) error {
	return r.CreateItem(ctx, w)
}

func (r *fakeWardrobeRepo) ListActiveItemIDs(ctx context.Context, owner string, ids []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []string
	for _, w := range r.items {
		if w.OwnerOpenID == owner && !w.Deleted && slices.Contains(ids, w.ID) {
			found = append(found, w.ID)
		}
	}
	return found, nil
}

func (r *fakeWardrobeRepo) ListOutfits(ctx context.Context, owner string) ([]*model.Outfit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Outfit
	for _, o := range r.outfits {
		if o.OwnerOpenID == owner {
			oo := *o
			out = append(out, &oo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeWardrobeRepo) FindOutfit(ctx context.Context, id string) (*model.Outfit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.outfits[id]; ok {
		oo := *o
		oo.ItemIDs = slices.Clone(o.ItemIDs)
		return &oo, nil
	}
	return nil, nil
}

func (r *fakeWardrobeRepo) CreateOutfit(ctx context.Context, o *model.Outfit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	oo := *o
	oo.ItemIDs = slices.Clone(o.ItemIDs)
	r.outfits[o.ID] = &oo
	return nil
}

func (r *fakeWardrobeRepo) UpdateOutfit(ctx context.Context, o *model.Outfit) error {
	return r.CreateOutfit(ctx, o)
}

func (r *fakeWardrobeRepo) DeleteOutfit(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.outfits, id)
	return nil
}

var _ repository.WardrobeRepository = (*fakeWardrobeRepo)(nil)
