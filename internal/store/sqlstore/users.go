package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/arzan03/LibraryHub/internal/db"
	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

const userColumns = `id, email, password, first_name, last_name, role, created_at`

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = models.NormalizeEmail(user.Email)
	user.CreatedAt = user.CreatedAt.UTC()

	err := s.db.QueryRow(ctx,
		`INSERT INTO users (email, password, first_name, last_name, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		user.Email, user.Password, user.FirstName, user.LastName, string(user.Role), user.CreatedAt,
	).Scan(&user.ID)
	if db.IsUniqueViolation(err) {
		return models.User{}, store.ErrDuplicateEmail
	}
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, models.NormalizeEmail(email))
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (models.User, error) {
	var (
		u    models.User
		role string
	)
	err := s.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &role, &u.CreatedAt)
	if errors.Is(err, db.ErrNoRows) {
		return models.User{}, store.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	u.Role = models.Role(role)
	return u, nil
}
