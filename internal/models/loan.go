package models

import "time"

// LoanStatus is the lifecycle state of a loan: active until returned.
type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
)

// DefaultLoanPeriod is the fixed borrowing window.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// Loan records one user holding one copy of a book.
// Status is LoanReturned if and only if ReturnDate is set.
type Loan struct {
	ID         int64      `bson:"_id" json:"id"`
	UserID     int64      `bson:"user_id" json:"user_id"`
	BookID     int64      `bson:"book_id" json:"book_id"`
	BorrowDate time.Time  `bson:"borrow_date" json:"borrow_date"`
	DueDate    time.Time  `bson:"due_date" json:"due_date"`
	ReturnDate *time.Time `bson:"return_date" json:"return_date"`
	Status     LoanStatus `bson:"status" json:"status"`
}

// IsOverdue reports whether an active loan is past its due date at now.
func (l Loan) IsOverdue(now time.Time) bool {
	return l.Status == LoanActive && now.After(l.DueDate)
}

// LoanWithBook is a loan joined with the title and author of its book.
type LoanWithBook struct {
	Loan    `bson:",inline"`
	Title   string `bson:"title" json:"title"`
	Author  string `bson:"author" json:"author"`
	Overdue bool   `bson:"-" json:"overdue"`
}
