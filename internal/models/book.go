package models

import "time"

type Book struct {
	ID              int64      `bson:"_id" json:"id"`
	Title           string     `bson:"title" json:"title"`
	Author          string     `bson:"author" json:"author"`
	ISBN            string     `bson:"isbn" json:"isbn"`
	Category        string     `bson:"category" json:"category"`
	CopiesTotal     int        `bson:"copies_total" json:"copies_total"`
	CopiesAvailable int        `bson:"copies_available" json:"copies_available"`
	PublishedDate   *time.Time `bson:"published_date,omitempty" json:"published_date"`
	CoverKey        string     `bson:"cover_key,omitempty" json:"cover_key,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
}

// CopiesOnLoan is the number of units currently held by borrowers.
func (b Book) CopiesOnLoan() int {
	return b.CopiesTotal - b.CopiesAvailable
}

// BookSort lists the columns a catalog listing may be ordered by.
var BookSort = []string{"title", "author", "category", "published_date", "created_at"}

// ValidBookSort reports whether col is an allowed sort column.
func ValidBookSort(col string) bool {
	for _, c := range BookSort {
		if c == col {
			return true
		}
	}
	return false
}

// BookQuery filters and pages a catalog listing.
type BookQuery struct {
	Page     int
	Limit    int
	Search   string
	Category string
	Sort     string
}

// Offset is the number of rows skipped before the current page.
func (q BookQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

type BookPage struct {
	Books []Book `json:"books"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}
