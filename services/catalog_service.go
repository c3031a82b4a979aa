package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/cloudpharmacy/cloudstore/models"
	"github.com/cloudpharmacy/cloudstore/repository"
	"github.com/cloudpharmacy/cloudstore/storage"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

const (
	ListLimit    = 12
	PageSize     = 8
	RelatedLimit = 4
)

type ProductRepository interface {
	Insert(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Product, error)
	Find(ctx context.Context, q repository.ProductQuery) ([]models.Product, error)
	Update(ctx context.Context, id bson.ObjectID, patch repository.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	Count(ctx context.Context) (int64, error)
}

// OrderIndex answers whether orders still reference a product.
type OrderIndex interface {
	CountReferencing(ctx context.Context, productID bson.ObjectID) (int64, error)
}

// CategoryLookup resolves category ids for display.
type CategoryLookup interface {
	Summaries(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]models.CategorySummary, error)
}

// CatalogService owns the product write path: validation, slugs, the photo
// blob lifecycle and the order reference check on delete.
//
// A product's photoKey always names a live blob. New blobs are stored before
// the record points at them and old blobs are removed only after the record
// no longer does.
type CatalogService struct {
	products   ProductRepository
	orders     OrderIndex
	categories CategoryLookup
	blobs      storage.BlobStore
	policy     PhotoPolicy
	logger     *zap.Logger

	locks *keyedMutex
	now   func() time.Time
}

func NewCatalogService(
	products ProductRepository,
	orders OrderIndex,
	categories CategoryLookup,
	blobs storage.BlobStore,
	policy PhotoPolicy,
	logger *zap.Logger,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		products:   products,
		orders:     orders,
		categories: categories,
		blobs:      blobs,
		policy:     policy,
		logger:     logger.Named("catalog"),
		locks:      newKeyedMutex(),
		now:        nowUTC,
	}
}

func (s *CatalogService) PhotoPolicy() PhotoPolicy {
	return s.policy
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput, photo *PhotoUpload) (*models.Product, error) {
	fields, err := in.validateCreate()
	if err != nil {
		return nil, err
	}
	photoType, err := s.policy.checkPhoto(photo, s.policy.Required)
	if err != nil {
		return nil, err
	}

	now := s.now()
	id := bson.NewObjectID()
	p := &models.Product{
		Id:          id,
		Name:        fields.name,
		Slug:        fallbackSlug(fields.name, "product", id),
		Description: fields.description,
		Price:       fields.price,
		CategoryId:  fields.categoryID,
		Quantity:    fields.quantity,
		Shipping:    fields.shipping,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if photoType != "" {
		key, err := s.blobs.Put(ctx, photo.Data, photoType)
		if err != nil {
			return nil, NewStorageError("Error in storing product photo", err)
		}
		p.PhotoKey, p.PhotoType = key, photoType
	}

	if err := s.products.Insert(ctx, p); err != nil {
		if p.PhotoKey != "" {
			s.discardBlob(ctx, p.PhotoKey, "insert failed")
		}
		return nil, NewStorageError("Error in creating product", err)
	}

	s.logger.Info("product created", zap.String("id", p.Id.Hex()), zap.String("slug", p.Slug))
	s.attachCategories(ctx, []*models.Product{p})
	return p, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.attachCategories(ctx, []*models.Product{p})
	return p, nil
}

// List returns the newest products, at most ListLimit of them.
func (s *CatalogService) List(ctx context.Context) ([]models.Product, error) {
	return s.find(ctx, repository.ProductQuery{Limit: ListLimit})
}

// ListPage returns 1-based page of PageSize products. page <= 0 is page 1.
func (s *CatalogService) ListPage(ctx context.Context, page int) ([]models.Product, error) {
	if page < 1 {
		page = 1
	}
	if int64(page-1) > math.MaxInt64/PageSize {
		return []models.Product{}, nil
	}
	return s.find(ctx, repository.ProductQuery{
		Skip:  int64(page-1) * PageSize,
		Limit: PageSize,
	})
}

func (s *CatalogService) Filter(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	q, err := f.toQuery()
	if err != nil {
		return nil, err
	}
	return s.find(ctx, q)
}

// Search matches keyword against name or description, case-insensitively.
// An empty keyword returns the whole catalog.
func (s *CatalogService) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	return s.find(ctx, repository.ProductQuery{Keyword: strings.TrimSpace(keyword)})
}

// Related returns up to RelatedLimit other products of categoryID.
func (s *CatalogService) Related(ctx context.Context, productID, categoryID string) ([]models.Product, error) {
	pid, err := bson.ObjectIDFromHex(strings.TrimSpace(productID))
	if err != nil {
		return nil, NewValidationError("pid", "invalid product id")
	}
	cid, err := bson.ObjectIDFromHex(strings.TrimSpace(categoryID))
	if err != nil {
		return nil, NewValidationError("cid", "invalid category id")
	}
	return s.find(ctx, repository.ProductQuery{
		CategoryIDs: []bson.ObjectID{cid},
		ExcludeID:   &pid,
		Limit:       RelatedLimit,
	})
}

func (s *CatalogService) ByCategory(ctx context.Context, categoryID string) ([]models.Product, error) {
	cid, err := bson.ObjectIDFromHex(strings.TrimSpace(categoryID))
	if err != nil {
		return nil, NewValidationError("id", "invalid category id")
	}
	return s.find(ctx, repository.ProductQuery{CategoryIDs: []bson.ObjectID{cid}})
}

func (s *CatalogService) Count(ctx context.Context) (int64, error) {
	n, err := s.products.Count(ctx)
	if err != nil {
		return 0, NewStorageError("error in getting products", err)
	}
	return n, nil
}

// Update applies the supplied fields and, when photo is given, swaps the
// product photo: the new blob is stored, the record updated, and only then
// the old blob removed.
func (s *CatalogService) Update(ctx context.Context, id string, in ProductInput, photo *PhotoUpload) (*models.Product, error) {
	oid, err := parseProductID(id)
	if err != nil {
		return nil, err
	}
	patch, err := in.toPatch()
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		slug := fallbackSlug(*patch.Name, "product", oid)
		patch.Slug = &slug
	}
	var photoType string
	if photo != nil {
		if photoType, err = s.policy.checkPhoto(photo, false); err != nil {
			return nil, err
		}
	}
	if patch.Empty() && photoType == "" {
		return nil, NewValidationError("", "no updates provided")
	}

	unlock := s.locks.Lock(oid.Hex())
	defer unlock()

	current, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, s.lookupError(err)
	}

	var newKey string
	if photoType != "" {
		newKey, err = s.blobs.Put(ctx, photo.Data, photoType)
		if err != nil {
			return nil, NewStorageError("Error in storing product photo", err)
		}
		patch.PhotoKey, patch.PhotoType = &newKey, &photoType
	}
	patch.UpdatedAt = s.now()

	updated, err := s.products.Update(ctx, oid, patch)
	if err != nil {
		if newKey != "" {
			s.discardBlob(ctx, newKey, "update failed")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("Product not found")
		}
		return nil, NewStorageError("Error in updating product", err)
	}

	if newKey != "" && current.PhotoKey != "" && current.PhotoKey != newKey {
		s.discardBlob(ctx, current.PhotoKey, "photo replaced")
	}

	s.logger.Info("product updated", zap.String("id", oid.Hex()), zap.Bool("photoReplaced", newKey != ""))
	s.attachCategories(ctx, []*models.Product{updated})
	return updated, nil
}

// Delete removes a product that no order references, then its photo.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	oid, err := parseProductID(id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(oid.Hex())
	defer unlock()

	p, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return s.lookupError(err)
	}

	refs, err := s.orders.CountReferencing(ctx, oid)
	if err != nil {
		return NewStorageError("Error in deleting product", err)
	}
	if refs > 0 {
		return NewConflict("Cannot delete product as it exists in orders")
	}

	if err := s.products.Delete(ctx, oid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("Product not found")
		}
		return NewStorageError("Error in deleting product", err)
	}
	if p.PhotoKey != "" {
		s.discardBlob(ctx, p.PhotoKey, "product deleted")
	}

	s.logger.Info("product deleted", zap.String("id", oid.Hex()))
	return nil
}

// Photo returns the stored photo of a product.
func (s *CatalogService) Photo(ctx context.Context, id string) (*storage.Blob, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PhotoKey == "" {
		return nil, NewNotFound("Product has no photo")
	}
	blob, err := s.blobs.Get(ctx, p.PhotoKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFound("Photo not found")
		}
		return nil, NewStorageError("Error while getting photo", err)
	}
	if blob.ContentType == "" || blob.ContentType == "application/octet-stream" {
		blob.ContentType = p.PhotoType
	}
	return blob, nil
}

func (s *CatalogService) load(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseProductID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, s.lookupError(err)
	}
	return p, nil
}

func (s *CatalogService) lookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return NewNotFound("Product not found")
	}
	return NewStorageError("Error while getting the product", err)
}

func (s *CatalogService) find(ctx context.Context, q repository.ProductQuery) ([]models.Product, error) {
	products, err := s.products.Find(ctx, q)
	if err != nil {
		return nil, NewStorageError("Products cannot be fetched", err)
	}
	if products == nil {
		products = []models.Product{}
	}

	ptrs := make([]*models.Product, len(products))
	for i := range products {
		ptrs[i] = &products[i]
	}
	s.attachCategories(ctx, ptrs)
	return products, nil
}

// attachCategories fills the display summary of each product's category.
// Lookup failures only cost the summary.
func (s *CatalogService) attachCategories(ctx context.Context, products []*models.Product) {
	if s.categories == nil || len(products) == 0 {
		return
	}
	seen := make(map[bson.ObjectID]bool)
	ids := make([]bson.ObjectID, 0)
	for _, p := range products {
		if !p.CategoryId.IsZero() && !seen[p.CategoryId] {
			seen[p.CategoryId] = true
			ids = append(ids, p.CategoryId)
		}
	}
	if len(ids) == 0 {
		return
	}

	summaries, err := s.categories.Summaries(ctx, ids)
	if err != nil {
		s.logger.Warn("category lookup failed", zap.Error(err))
		return
	}
	for _, p := range products {
		if c, ok := summaries[p.CategoryId]; ok {
			p.Category = &c
		}
	}
}

// discardBlob deletes a blob that no record references. It runs even if the
// request context is already cancelled; failures leave an orphan and are
// only logged.
func (s *CatalogService) discardBlob(ctx context.Context, key, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Error("failed to delete photo blob",
			zap.String("key", key),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}
