package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Order is owned by the order service; the catalog only reads Products.
type Order struct {
	Id        bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Products  []bson.ObjectID `bson:"products" json:"products"`
	Buyer     bson.ObjectID   `bson:"buyer,omitempty" json:"buyer,omitempty"`
	Status    string          `bson:"status,omitempty" json:"status,omitempty"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
}
