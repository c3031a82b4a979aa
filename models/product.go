package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Product struct {
	Id          bson.ObjectID    `bson:"_id" json:"id"`
	Name        string           `bson:"name" json:"name"`
	Slug        string           `bson:"slug" json:"slug"`
	Description string           `bson:"description" json:"description"`
	Price       float64          `bson:"price" json:"price"`
	CategoryId  bson.ObjectID    `bson:"category" json:"categoryId"`
	Category    *CategorySummary `bson:"-" json:"category,omitempty"`
	Quantity    int              `bson:"quantity" json:"quantity"`
	Shipping    bool             `bson:"shipping" json:"shipping"`
	PhotoKey    string           `bson:"photoKey,omitempty" json:"photoKey,omitempty"`
	PhotoType   string           `bson:"photoType,omitempty" json:"photoType,omitempty"`
	CreatedAt   time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time        `bson:"updatedAt" json:"updatedAt"`
}
