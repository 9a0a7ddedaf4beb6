package services

import (
	"context"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

type UserService struct {
	users store.UserStore
}

// NewUserService builds the profile service.
func NewUserService(users store.UserStore) *UserService {
	return &UserService{users: users}
}

// Profile returns the caller's own account.
func (s *UserService) Profile(ctx context.Context, who models.Identity) (models.User, error) {
	return s.users.GetUserByID(ctx, who.ID)
}
