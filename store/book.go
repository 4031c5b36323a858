package store

import (
	"context"
	"time"

	"elib/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	res, err := db.Books().InsertOne(ctx, book)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) AllBooks(ctx context.Context) ([]models.Book, error) {
	cur, err := db.Books().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var books []models.Book
	if err := cur.All(ctx, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// BookByID returns nil, nil when no book has that id.
func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateBook persists title, genre and the asset URLs, and returns the record
// as stored after the update.
func (db *DB) UpdateBook(ctx context.Context, id primitive.ObjectID, title, genre, coverImage, file string) (*models.Book, error) {
	update := bson.M{"$set": bson.M{
		"title":      title,
		"genre":      genre,
		"coverImage": coverImage,
		"file":       file,
		"modifiedAt": time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var book models.Book
	err := db.Books().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&book)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// DeleteBook removes the record and reports how many documents went away.
func (db *DB) DeleteBook(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := db.Books().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
