// Package mongostore implements store.Store on MongoDB. Loan transactions use
// multi-document transactions, so the deployment must be a replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/arzan03/LibraryHub/internal/store"
)

const (
	colUsers    = "users"
	colBooks    = "books"
	colLoans    = "loans"
	colCounters = "counters"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Store over the named database. Call Migrate before first use.
func New(client *mongo.Client, database string, opts ...Option) *Store {
	s := &Store{
		client: client,
		db:     client.Database(database),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) users() *mongo.Collection    { return s.db.Collection(colUsers) }
func (s *Store) books() *mongo.Collection    { return s.db.Collection(colBooks) }
func (s *Store) loans() *mongo.Collection    { return s.db.Collection(colLoans) }
func (s *Store) counters() *mongo.Collection { return s.db.Collection(colCounters) }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Migrate creates the indexes the queries rely on. Collections are created up
// front because they cannot be created inside a transaction on older servers.
func (s *Store) Migrate(ctx context.Context) error {
	existing, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}
	for _, name := range []string{colUsers, colBooks, colLoans, colCounters} {
		if have[name] {
			continue
		}
		if err := s.db.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
	}

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users(): {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.books(): {
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "title", Value: 1}}},
		},
		s.loans(): {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "borrow_date", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// nextID hands out sequential integer ids per collection. It runs outside any
// transaction, so an aborted insert leaves a gap.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters().FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return counter.Seq, nil
}

func exists(ctx context.Context, coll *mongo.Collection, id int64) (bool, error) {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
