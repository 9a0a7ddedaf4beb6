package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

func (s *Store) CountBooks(ctx context.Context) (int64, error) {
	return count(ctx, s.books(), bson.M{})
}

func (s *Store) SumCopies(ctx context.Context) (store.CopyTotals, error) {
	cursor, err := s.books().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"total":     bson.M{"$sum": "$copies_total"},
			"available": bson.M{"$sum": "$copies_available"},
		}}},
	})
	if err != nil {
		return store.CopyTotals{}, fmt.Errorf("sum copies: %w", err)
	}
	var rows []struct {
		Total     int64 `bson:"total"`
		Available int64 `bson:"available"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return store.CopyTotals{}, fmt.Errorf("decode copy totals: %w", err)
	}
	if len(rows) == 0 {
		return store.CopyTotals{}, nil
	}
	return store.CopyTotals{Total: rows[0].Total, Available: rows[0].Available}, nil
}

func (s *Store) CountActiveLoans(ctx context.Context) (int64, error) {
	return count(ctx, s.loans(), bson.M{"status": models.LoanActive})
}

func (s *Store) CountOverdueLoans(ctx context.Context, now time.Time) (int64, error) {
	return count(ctx, s.loans(), bson.M{"status": models.LoanActive, "due_date": bson.M{"$lt": now.UTC()}})
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return count(ctx, s.users(), bson.M{})
}

func count(ctx context.Context, coll *mongo.Collection, filter bson.M) (int64, error) {
	n, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	return n, nil
}
