package repository

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cloudpharmacy/cloudstore/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryProductRepository is a process-local product collection with the
// same query semantics as MongoProductRepository.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[bson.ObjectID]models.Product
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[bson.ObjectID]models.Product)}
}

func (r *MemoryProductRepository) Insert(ctx context.Context, p *models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.Id]; ok {
		return ErrDuplicate
	}
	stored := *p
	stored.Category = nil
	r.products[p.Id] = stored
	return nil
}

func (r *MemoryProductRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryProductRepository) Find(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	matched := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if matchesQuery(p, q) {
			matched = append(matched, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.Id[:], b.Id[:]) > 0
	})

	if q.Skip > 0 {
		if q.Skip >= int64(len(matched)) {
			return []models.Product{}, nil
		}
		matched = matched[q.Skip:]
	}
	if q.Limit > 0 && int64(len(matched)) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (r *MemoryProductRepository) Update(ctx context.Context, id bson.ObjectID, patch ProductPatch) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.CategoryId != nil {
		p.CategoryId = *patch.CategoryId
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.Shipping != nil {
		p.Shipping = *patch.Shipping
	}
	if patch.PhotoKey != nil {
		p.PhotoKey = *patch.PhotoKey
	}
	if patch.PhotoType != nil {
		p.PhotoType = *patch.PhotoType
	}
	p.UpdatedAt = patch.UpdatedAt
	r.products[id] = p
	return &p, nil
}

func (r *MemoryProductRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *MemoryProductRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.products)), nil
}

func matchesQuery(p models.Product, q ProductQuery) bool {
	if len(q.CategoryIDs) > 0 {
		found := false
		for _, id := range q.CategoryIDs {
			if id == p.CategoryId {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.MinPrice != nil && p.Price < *q.MinPrice {
		return false
	}
	if q.MaxPrice != nil && p.Price > *q.MaxPrice {
		return false
	}
	if q.Keyword != "" {
		kw := strings.ToLower(q.Keyword)
		if !strings.Contains(strings.ToLower(p.Name), kw) && !strings.Contains(strings.ToLower(p.Description), kw) {
			return false
		}
	}
	if q.ExcludeID != nil && p.Id == *q.ExcludeID {
		return false
	}
	return true
}

// MemoryOrderIndex holds order product references in memory.
type MemoryOrderIndex struct {
	mu     sync.RWMutex
	orders []models.Order
}

func NewMemoryOrderIndex() *MemoryOrderIndex {
	return &MemoryOrderIndex{}
}

// Add records an order. Used to seed data in tests and local runs.
func (r *MemoryOrderIndex) Add(order models.Order) {
	r.mu.Lock()
	r.orders = append(r.orders, order)
	r.mu.Unlock()
}

func (r *MemoryOrderIndex) CountReferencing(ctx context.Context, productID bson.ObjectID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, o := range r.orders {
		for _, id := range o.Products {
			if id == productID {
				n++
				break
			}
		}
	}
	return n, nil
}

type MemoryCategoryRepository struct {
	mu         sync.RWMutex
	categories map[bson.ObjectID]models.Category
}

func NewMemoryCategoryRepository() *MemoryCategoryRepository {
	return &MemoryCategoryRepository{categories: make(map[bson.ObjectID]models.Category)}
}

func (r *MemoryCategoryRepository) Summaries(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]models.CategorySummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[bson.ObjectID]models.CategorySummary, len(ids))
	for _, id := range ids {
		if cat, ok := r.categories[id]; ok {
			out[id] = cat.Summary()
		}
	}
	return out, nil
}

func (r *MemoryCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	items := make([]models.Category, 0, len(r.categories))
	for _, c := range r.categories {
		items = append(items, c)
	}
	r.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r *MemoryCategoryRepository) Get(ctx context.Context, id bson.ObjectID) (*models.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *MemoryCategoryRepository) Insert(ctx context.Context, cat *models.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slugTaken(cat.Slug, cat.Id) {
		return ErrDuplicate
	}
	if cat.Id.IsZero() {
		cat.Id = bson.NewObjectID()
	}
	r.categories[cat.Id] = *cat
	return nil
}

func (r *MemoryCategoryRepository) Update(ctx context.Context, id bson.ObjectID, name, slug string) (*models.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.slugTaken(slug, id) {
		return nil, ErrDuplicate
	}
	c.Name, c.Slug = name, slug
	r.categories[id] = c
	return &c, nil
}

func (r *MemoryCategoryRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.categories[id]; !ok {
		return ErrNotFound
	}
	delete(r.categories, id)
	return nil
}

func (r *MemoryCategoryRepository) slugTaken(slug string, except bson.ObjectID) bool {
	for id, c := range r.categories {
		if c.Slug == slug && id != except {
			return true
		}
	}
	return false
}

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]models.User)}
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) InsertIfAbsent(ctx context.Context, user models.User) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Email]; ok {
		return false, nil
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	r.users[user.Email] = user
	return true, nil
}
