package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudpharmacy/cloudstore/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// InsertIfAbsent stores user unless a user with the same email exists.
// It reports whether a document was inserted.
func (r *MongoUserRepository) InsertIfAbsent(ctx context.Context, user models.User) (bool, error) {
	filter := bson.M{"email": user.Email}
	update := bson.M{
		"$setOnInsert": bson.M{
			"email":        user.Email,
			"passwordHash": user.PasswordHash,
			"role":         user.Role,
			"isActive":     user.IsActive,
			"createdAt":    user.CreatedAt,
			"updatedAt":    user.UpdatedAt,
		},
	}

	res, err := r.col.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	return res.UpsertedCount == 1, nil
}
