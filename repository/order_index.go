package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoOrderIndex reads the orders collection owned by the order service.
type MongoOrderIndex struct {
	col *mongo.Collection
}

func NewMongoOrderIndex(col *mongo.Collection) *MongoOrderIndex {
	return &MongoOrderIndex{col: col}
}

// CountReferencing returns how many orders list productID.
func (r *MongoOrderIndex) CountReferencing(ctx context.Context, productID bson.ObjectID) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"products": productID})
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
