package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudpharmacy/cloudstore/models"
	"github.com/cloudpharmacy/cloudstore/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoCategoryRepository struct {
	col *mongo.Collection
}

func NewMongoCategoryRepository(col *mongo.Collection) *MongoCategoryRepository {
	return &MongoCategoryRepository{col: col}
}

// Summaries resolves ids to display summaries. Unknown ids are absent from
// the result.
func (r *MongoCategoryRepository) Summaries(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]models.CategorySummary, error) {
	out := make(map[bson.ObjectID]models.CategorySummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	opts := options.Find().SetProjection(bson.M{"name": 1, "slug": 1})
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var cat models.Category
		if err := cursor.Decode(&cat); err != nil {
			return nil, fmt.Errorf("decode category: %w", err)
		}
		out[cat.Id] = cat.Summary()
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *MongoCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	cursor, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]models.Category, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return items, nil
}

func (r *MongoCategoryRepository) Get(ctx context.Context, id bson.ObjectID) (*models.Category, error) {
	var cat models.Category
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&cat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &cat, nil
}

func (r *MongoCategoryRepository) Insert(ctx context.Context, cat *models.Category) error {
	if _, err := r.col.InsertOne(ctx, cat); err != nil {
		if utils.IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *MongoCategoryRepository) Update(ctx context.Context, id bson.ObjectID, name, slug string) (*models.Category, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var cat models.Category
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"name": name, "slug": slug}}, opts).Decode(&cat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if utils.IsDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return &cat, nil
}

func (r *MongoCategoryRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
