package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	user.Email = models.NormalizeEmail(user.Email)
	user.CreatedAt = user.CreatedAt.UTC()

	id, err := s.nextID(ctx, colUsers)
	if err != nil {
		return models.User{}, err
	}
	user.ID = id

	if _, err := s.users().InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, store.ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	err := s.users().FindOne(ctx, filter).Decode(&u)
	if isNoDocuments(err) {
		return models.User{}, store.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}
