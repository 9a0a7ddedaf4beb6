package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/policy"
	"github.com/arzan03/LibraryHub/internal/store"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

// Claims is the access token payload.
type Claims struct {
	ID    int64       `json:"id"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type AuthConfig struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

type AuthService struct {
	users  store.UserStore
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// NewAuthService fills in a 7-day token lifetime and bcrypt.DefaultCost when unset.
func NewAuthService(users store.UserStore, cfg AuthConfig) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:  users,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
		cost:   cfg.BcryptCost,
		now:    time.Now,
	}
}

// Register creates a student account and returns it with an access token.
// Elevated roles cannot be self-assigned.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, string, error) {
	role := models.RoleStudent
	if strings.TrimSpace(in.Role) != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok {
			return models.User{}, "", invalid("Invalid role")
		}
		if r != models.RoleStudent {
			return models.User{}, "", policy.ErrForbidden
		}
	}

	user, err := s.CreateAccount(ctx, in, role)
	if err != nil {
		return models.User{}, "", err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// CreateAccount validates the input and stores a user with any role.
func (s *AuthService) CreateAccount(ctx context.Context, in RegisterInput, role models.Role) (models.User, error) {
	if !role.Valid() {
		return models.User{}, invalid("Invalid role")
	}
	if err := ValidateEmail(in.Email); err != nil {
		return models.User{}, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return models.User{}, err
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.users.CreateUser(ctx, models.User{
		Email:     models.NormalizeEmail(in.Email),
		Password:  hash,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
		CreatedAt: s.now().UTC(),
	})
}

// Login checks credentials and returns the user with a fresh access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, "", invalid("Email and password required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		return models.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, "", err
	}
	if !VerifyPassword(password, user.Password) {
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// IssueToken signs an HS256 token carrying the user's id, email and role.
func (s *AuthService) IssueToken(user models.User) (string, error) {
	now := s.now()
	claims := Claims{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a token, returning the identity it carries.
func (s *AuthService) VerifyToken(tokenString string) (models.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return models.Identity{}, ErrInvalidToken
	}
	if claims.ID <= 0 || !claims.Role.Valid() {
		return models.Identity{}, ErrInvalidToken
	}
	return models.Identity{ID: claims.ID, Email: claims.Email, Role: claims.Role}, nil
}

// ValidateEmail checks the basic local@domain.tld shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return invalid("Invalid email format")
	}
	return nil
}

// ValidatePassword requires 8 characters with an uppercase letter, a lowercase letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return invalid("Password must be at least %d characters", minPasswordLength)
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return invalid("Password must contain uppercase, lowercase, and numbers")
	}
	return nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(hash), err
}

// VerifyPassword compares a plain password with a hashed password
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
