package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

// WithinTx runs fn in a session transaction. The driver retries fn on
// transient write conflicts, which is how concurrent borrows of the same book
// serialize. Ending the session aborts a transaction left open by a panic.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.LoanTx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&mongoTx{s: s, sc: sc, base: ctx})
	})
	return err
}

func (s *Store) ListLoansByUser(ctx context.Context, userID int64) ([]models.LoanWithBook, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$sort", Value: bson.D{{Key: "borrow_date", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         colBooks,
			"localField":   "book_id",
			"foreignField": "_id",
			"as":           "book",
		}}},
		{{Key: "$unwind", Value: "$book"}},
		{{Key: "$addFields", Value: bson.M{"title": "$book.title", "author": "$book.author"}}},
		{{Key: "$project", Value: bson.M{"book": 0}}},
	}

	cursor, err := s.loans().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	loans := make([]models.LoanWithBook, 0)
	if err := cursor.All(ctx, &loans); err != nil {
		return nil, fmt.Errorf("decode loans: %w", err)
	}
	return loans, nil
}

// mongoTx runs every operation on the session context, whatever context the
// caller passes.
type mongoTx struct {
	s    *Store
	sc   mongo.SessionContext
	base context.Context
}

func (t *mongoTx) ReserveCopy(_ context.Context, bookID int64) error {
	err := t.s.books().FindOneAndUpdate(t.sc,
		bson.M{"_id": bookID, "copies_available": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"copies_available": -1}},
	).Err()
	return t.checkBookUpdate(err, bookID, store.ErrNoCopiesAvailable)
}

func (t *mongoTx) ReleaseCopy(_ context.Context, bookID int64) error {
	err := t.s.books().FindOneAndUpdate(t.sc,
		bson.M{"_id": bookID, "$expr": bson.M{"$lt": bson.A{"$copies_available", "$copies_total"}}},
		bson.M{"$inc": bson.M{"copies_available": 1}},
	).Err()
	return t.checkBookUpdate(err, bookID, store.ErrInventoryInconsistent)
}

func (t *mongoTx) checkBookUpdate(err error, bookID int64, guardErr error) error {
	if err == nil {
		return nil
	}
	if !isNoDocuments(err) {
		return fmt.Errorf("update book copies: %w", err)
	}
	found, err := exists(t.sc, t.s.books(), bookID)
	if err != nil {
		return fmt.Errorf("check book: %w", err)
	}
	if !found {
		return store.ErrBookNotFound
	}
	return guardErr
}

// InsertLoan refuses loans for users that do not exist; Mongo has no foreign keys.
func (t *mongoTx) InsertLoan(_ context.Context, loan models.Loan) (models.Loan, error) {
	found, err := exists(t.sc, t.s.users(), loan.UserID)
	if err != nil {
		return models.Loan{}, fmt.Errorf("check user: %w", err)
	}
	if !found {
		return models.Loan{}, store.ErrUserNotFound
	}

	id, err := t.s.nextID(t.base, colLoans)
	if err != nil {
		return models.Loan{}, err
	}
	loan.ID = id
	loan.BorrowDate = loan.BorrowDate.UTC()
	loan.DueDate = loan.DueDate.UTC()

	if _, err := t.s.loans().InsertOne(t.sc, loan); err != nil {
		return models.Loan{}, fmt.Errorf("insert loan: %w", err)
	}
	return loan, nil
}

func (t *mongoTx) GetLoan(_ context.Context, id int64) (models.Loan, error) {
	var l models.Loan
	err := t.s.loans().FindOne(t.sc, bson.M{"_id": id}).Decode(&l)
	if isNoDocuments(err) {
		return models.Loan{}, store.ErrLoanNotFound
	}
	if err != nil {
		return models.Loan{}, fmt.Errorf("find loan: %w", err)
	}
	return l, nil
}

func (t *mongoTx) CloseLoan(ctx context.Context, id int64, returnedAt time.Time) (models.Loan, error) {
	var l models.Loan
	err := t.s.loans().FindOneAndUpdate(t.sc,
		bson.M{"_id": id, "status": models.LoanActive},
		bson.M{"$set": bson.M{"status": models.LoanReturned, "return_date": returnedAt.UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&l)
	if err == nil {
		return l, nil
	}
	if !isNoDocuments(err) {
		return models.Loan{}, fmt.Errorf("close loan: %w", err)
	}
	if _, err := t.GetLoan(ctx, id); err != nil {
		return models.Loan{}, err
	}
	return models.Loan{}, store.ErrLoanAlreadyReturned
}
