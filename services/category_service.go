package services

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudpharmacy/cloudstore/models"
	"github.com/cloudpharmacy/cloudstore/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id bson.ObjectID) (*models.Category, error)
	Insert(ctx context.Context, cat *models.Category) error
	Update(ctx context.Context, id bson.ObjectID, name, slug string) (*models.Category, error)
	Delete(ctx context.Context, id bson.ObjectID) error
}

// CategoryService backs the category routes the storefront sidebar and
// admin screens use. Products reference categories by id only.
type CategoryService struct {
	store CategoryStore
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, NewStorageError("Error while getting all categories", err)
	}
	return items, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	oid, err := parseCategoryID(id)
	if err != nil {
		return nil, err
	}
	cat, err := s.store.Get(ctx, oid)
	if err != nil {
		return nil, categoryError(err, "Error while getting category")
	}
	return cat, nil
}

func (s *CategoryService) Create(ctx context.Context, name, slug string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("name", "Name is required")
	}
	id := bson.NewObjectID()
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = fallbackSlug(name, "category", id)
	}

	cat := &models.Category{Id: id, Name: name, Slug: slug}
	if err := s.store.Insert(ctx, cat); err != nil {
		return nil, categoryError(err, "Error in category")
	}
	return cat, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, name, slug *string) (*models.Category, error) {
	oid, err := parseCategoryID(id)
	if err != nil {
		return nil, err
	}
	current, err := s.store.Get(ctx, oid)
	if err != nil {
		return nil, categoryError(err, "Error while updating category")
	}

	newName, newSlug := current.Name, current.Slug
	if name != nil {
		if newName = strings.TrimSpace(*name); newName == "" {
			return nil, NewValidationError("name", "name cannot be empty")
		}
		newSlug = fallbackSlug(newName, "category", oid)
	}
	if slug != nil {
		if newSlug = strings.TrimSpace(*slug); newSlug == "" {
			return nil, NewValidationError("slug", "slug cannot be empty")
		}
	}
	if name == nil && slug == nil {
		return nil, NewValidationError("", "no updates provided")
	}

	cat, err := s.store.Update(ctx, oid, newName, newSlug)
	if err != nil {
		return nil, categoryError(err, "Error while updating category")
	}
	return cat, nil
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	oid, err := parseCategoryID(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, oid); err != nil {
		return categoryError(err, "error while deleting category")
	}
	return nil
}

func parseCategoryID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return bson.ObjectID{}, NewNotFound("category not found")
	}
	return oid, nil
}

func categoryError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return NewNotFound("category not found")
	case errors.Is(err, repository.ErrDuplicate):
		return &CatalogError{Kind: KindConflict, Field: "slug", Message: "slug already exists"}
	default:
		return NewStorageError(msg, err)
	}
}
