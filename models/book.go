package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Book struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Genre       string             `bson:"genre" json:"genre"`
	Author      primitive.ObjectID `bson:"author" json:"author"`
	CoverImage  string             `bson:"coverImage" json:"coverImage"` // asset store URL
	File        string             `bson:"file" json:"file"`             // asset store URL (pdf)
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	ModifiedAt  time.Time          `bson:"modifiedAt" json:"modifiedAt"`
}
