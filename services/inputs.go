package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cloudpharmacy/cloudstore/repository"
	"github.com/cloudpharmacy/cloudstore/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ProductInput carries the scalar product fields of a create or update
// request. A nil field was not supplied.
type ProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	CategoryID  *string
	Quantity    *int
	Shipping    *bool
}

// PhotoUpload is the uploaded photo of a single request. Data may be
// truncated one byte past the size ceiling by the transport.
type PhotoUpload struct {
	Filename string
	Data     []byte
}

type PhotoPolicy struct {
	Required bool
	MaxBytes int64
}

const DefaultMaxPhotoBytes = 1 << 20

// ProductFilter is the category/price filter of the storefront sidebar.
type ProductFilter struct {
	CategoryIDs []string
	PriceRange  []float64
}

type validProduct struct {
	name        string
	description string
	price       float64
	categoryID  bson.ObjectID
	quantity    int
	shipping    bool
}

func (in ProductInput) validateCreate() (*validProduct, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, NewValidationError("name", "Name is required")
	}
	if in.Description == nil || strings.TrimSpace(*in.Description) == "" {
		return nil, NewValidationError("description", "Description is required")
	}
	if in.Price == nil {
		return nil, NewValidationError("price", "Price is required")
	}
	if in.CategoryID == nil || strings.TrimSpace(*in.CategoryID) == "" {
		return nil, NewValidationError("category", "Category is required")
	}
	if in.Quantity == nil {
		return nil, NewValidationError("quantity", "Quantity is required")
	}
	if in.Shipping == nil {
		return nil, NewValidationError("shipping", "Shipping is required")
	}

	patch, err := in.toPatch()
	if err != nil {
		return nil, err
	}
	return &validProduct{
		name:        *patch.Name,
		description: *patch.Description,
		price:       *patch.Price,
		categoryID:  *patch.CategoryId,
		quantity:    *patch.Quantity,
		shipping:    *patch.Shipping,
	}, nil
}

// toPatch validates the supplied fields and converts them to a repository
// patch. The caller sets the slug, which needs the product id.
func (in ProductInput) toPatch() (repository.ProductPatch, error) {
	var patch repository.ProductPatch

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return patch, NewValidationError("name", "Name cannot be empty")
		}
		patch.Name = &name
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			return patch, NewValidationError("description", "Description cannot be empty")
		}
		patch.Description = &desc
	}
	if in.Price != nil {
		if !validPrice(*in.Price) {
			return patch, NewValidationError("price", "Price must be a non-negative number")
		}
		price := *in.Price
		patch.Price = &price
	}
	if in.CategoryID != nil {
		id, err := bson.ObjectIDFromHex(strings.TrimSpace(*in.CategoryID))
		if err != nil {
			return patch, NewValidationError("category", "Category is not a valid id")
		}
		patch.CategoryId = &id
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			return patch, NewValidationError("quantity", "Quantity must not be negative")
		}
		qty := *in.Quantity
		patch.Quantity = &qty
	}
	if in.Shipping != nil {
		shipping := *in.Shipping
		patch.Shipping = &shipping
	}
	return patch, nil
}

// checkPhoto enforces the photo policy and returns the sniffed content type.
func (p PhotoPolicy) checkPhoto(photo *PhotoUpload, required bool) (string, error) {
	if photo == nil || len(photo.Data) == 0 {
		if required {
			return "", NewValidationError("photo", "Photo is required")
		}
		return "", nil
	}
	if int64(len(photo.Data)) > p.maxBytes() {
		return "", p.TooLarge()
	}
	contentType, ok := utils.DetectPhotoType(photo.Data)
	if !ok {
		return "", NewValidationError("photo", "Photo must be a JPEG, PNG, GIF or WebP image")
	}
	return contentType, nil
}

// TooLarge is the error for a photo over the size ceiling.
func (p PhotoPolicy) TooLarge() *CatalogError {
	return NewValidationError("photo", fmt.Sprintf("Photo should be less than %s", humanSize(p.maxBytes())))
}

// Limit is the effective size ceiling in bytes.
func (p PhotoPolicy) Limit() int64 {
	return p.maxBytes()
}

func (p PhotoPolicy) maxBytes() int64 {
	if p.MaxBytes <= 0 {
		return DefaultMaxPhotoBytes
	}
	return p.MaxBytes
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func (f ProductFilter) toQuery() (repository.ProductQuery, error) {
	var q repository.ProductQuery

	if len(f.CategoryIDs) > 0 {
		ids, err := utils.StringsToObjectIDs(f.CategoryIDs)
		if err != nil {
			return q, NewValidationError("checked", "invalid category id")
		}
		q.CategoryIDs = ids
	}

	switch len(f.PriceRange) {
	case 0:
	case 2:
		lo, hi := f.PriceRange[0], f.PriceRange[1]
		if math.IsNaN(lo) || math.IsNaN(hi) {
			return q, NewValidationError("radio", "price range must be numeric")
		}
		if lo > hi {
			return q, NewValidationError("radio", "price range minimum exceeds maximum")
		}
		q.MinPrice, q.MaxPrice = &lo, &hi
	default:
		return q, NewValidationError("radio", "price range must be [min, max]")
	}
	return q, nil
}

// validPrice rejects negatives, NaN and infinities. NaN fails every
// comparison, so the check is written as a positive assertion.
func validPrice(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

// fallbackSlug is used when name has no Latin letters or digits to slug.
func fallbackSlug(name, prefix string, id bson.ObjectID) string {
	if slug := utils.GenerateSlug(name); slug != "" {
		return slug
	}
	return prefix + "-" + id.Hex()
}

func parseProductID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return bson.ObjectID{}, NewNotFound("Product not found")
	}
	return oid, nil
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
