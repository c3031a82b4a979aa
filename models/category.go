package models

import "go.mongodb.org/mongo-driver/v2/bson"

type Category struct {
	Id   bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string        `bson:"name" json:"name"`
	Slug string        `bson:"slug" json:"slug"`
}

// CategorySummary is the display projection attached to products on reads.
type CategorySummary struct {
	Id   bson.ObjectID `json:"id"`
	Name string        `json:"name"`
	Slug string        `json:"slug"`
}

func (c Category) Summary() CategorySummary {
	return CategorySummary{Id: c.Id, Name: c.Name, Slug: c.Slug}
}
