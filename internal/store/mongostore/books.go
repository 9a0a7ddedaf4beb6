package mongostore

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

func (s *Store) CreateBook(ctx context.Context, book models.Book) (models.Book, error) {
	book.CreatedAt = book.CreatedAt.UTC()

	id, err := s.nextID(ctx, colBooks)
	if err != nil {
		return models.Book{}, err
	}
	book.ID = id

	if _, err := s.books().InsertOne(ctx, book); err != nil {
		return models.Book{}, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

func (s *Store) GetBook(ctx context.Context, id int64) (models.Book, error) {
	var b models.Book
	err := s.books().FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if isNoDocuments(err) {
		return models.Book{}, store.ErrBookNotFound
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("find book: %w", err)
	}
	return b, nil
}

func (s *Store) SetCoverKey(ctx context.Context, id int64, key string) error {
	res, err := s.books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"cover_key": key}})
	if err != nil {
		return fmt.Errorf("update cover key: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrBookNotFound
	}
	return nil
}

func (s *Store) ListBooks(ctx context.Context, q models.BookQuery) (models.BookPage, error) {
	sortCol := q.Sort
	if sortCol == "" {
		sortCol = "title"
	}
	if !models.ValidBookSort(sortCol) {
		return models.BookPage{}, store.ErrUnsupportedBookSorting
	}

	filter := bson.M{}
	if q.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"author": pattern}}
	}
	if q.Category != "" {
		filter["category"] = q.Category
	}

	total, err := s.books().CountDocuments(ctx, filter)
	if err != nil {
		return models.BookPage{}, fmt.Errorf("count books: %w", err)
	}

	pipeline := mongo.Pipeline{{{Key: "$match", Value: filter}}}
	sortSpec := bson.D{{Key: sortCol, Value: 1}, {Key: "_id", Value: 1}}
	if sortCol == "published_date" {
		// missing dates sort last, as in the SQL backends
		pipeline = append(pipeline, bson.D{{Key: "$addFields", Value: bson.M{
			"_undated": bson.M{"$eq": bson.A{bson.M{"$ifNull": bson.A{"$published_date", nil}}, nil}},
		}}})
		sortSpec = append(bson.D{{Key: "_undated", Value: 1}}, sortSpec...)
	}
	pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sortSpec}})
	if q.Limit > 0 {
		pipeline = append(pipeline,
			bson.D{{Key: "$skip", Value: int64(q.Offset())}},
			bson.D{{Key: "$limit", Value: int64(q.Limit)}},
		)
	}

	cursor, err := s.books().Aggregate(ctx, pipeline)
	if err != nil {
		return models.BookPage{}, fmt.Errorf("list books: %w", err)
	}
	books := make([]models.Book, 0)
	if err := cursor.All(ctx, &books); err != nil {
		return models.BookPage{}, fmt.Errorf("decode books: %w", err)
	}

	return models.BookPage{Books: books, Total: total, Page: q.Page, Limit: q.Limit}, nil
}
