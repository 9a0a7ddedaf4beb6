package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store/memstore"
	"github.com/arzan03/LibraryHub/internal/store/storetest"
)

var (
	student   = models.Identity{ID: 1, Email: "student@example.com", Role: models.RoleStudent}
	librarian = models.Identity{ID: 2, Email: "librarian@example.com", Role: models.RoleLibrarian}
	admin     = models.Identity{ID: 3, Email: "admin@example.com", Role: models.RoleAdmin}
)

// fixedClock returns a clock frozen at t that can be advanced by the test.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fixedClock {
	return &fixedClock{t: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)}
}

// seededStore returns a memstore holding the student, librarian and admin accounts.
func seededStore(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	for _, who := range []models.Identity{student, librarian, admin} {
		u, err := s.CreateUser(context.Background(), models.User{Email: who.Email, Password: "x", Role: who.Role, CreatedAt: storetest.Now()})
		require.NoError(t, err)
		require.Equal(t, who.ID, u.ID)
	}
	return s
}
