package repository

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
)

// ProductQuery selects products. Zero values mean "no restriction";
// Limit 0 means unlimited. Results are always newest first.
type ProductQuery struct {
	CategoryIDs []bson.ObjectID
	MinPrice    *float64
	MaxPrice    *float64
	Keyword     string
	ExcludeID   *bson.ObjectID
	Skip        int64
	Limit       int64
}

// ProductPatch holds the fields of a partial product update. Nil fields are
// left unchanged; UpdatedAt is always written.
type ProductPatch struct {
	Name        *string
	Slug        *string
	Description *string
	Price       *float64
	CategoryId  *bson.ObjectID
	Quantity    *int
	Shipping    *bool
	PhotoKey    *string
	PhotoType   *string
	UpdatedAt   time.Time
}

// Empty reports whether the patch changes no product field.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Slug == nil && p.Description == nil && p.Price == nil &&
		p.CategoryId == nil && p.Quantity == nil && p.Shipping == nil &&
		p.PhotoKey == nil && p.PhotoType == nil
}

func (p ProductPatch) setDoc() bson.M {
	set := bson.M{"updatedAt": p.UpdatedAt}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Slug != nil {
		set["slug"] = *p.Slug
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.CategoryId != nil {
		set["category"] = *p.CategoryId
	}
	if p.Quantity != nil {
		set["quantity"] = *p.Quantity
	}
	if p.Shipping != nil {
		set["shipping"] = *p.Shipping
	}
	if p.PhotoKey != nil {
		set["photoKey"] = *p.PhotoKey
	}
	if p.PhotoType != nil {
		set["photoType"] = *p.PhotoType
	}
	return set
}
