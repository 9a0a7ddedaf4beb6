package services_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arzan03/LibraryHub/internal/models"
	"github.com/arzan03/LibraryHub/internal/policy"
	"github.com/arzan03/LibraryHub/internal/services"
	"github.com/arzan03/LibraryHub/internal/store"
	"github.com/arzan03/LibraryHub/internal/store/memstore"
)

const testSecret = "test-secret"

func newAuth(s store.UserStore) *services.AuthService {
	return services.NewAuthService(s, services.AuthConfig{
		Secret:     testSecret,
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
}

func TestRegisterCreatesStudent(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	auth := newAuth(s)

	user, token, err := auth.Register(ctx, services.RegisterInput{
		Email:     "  New.Reader@Example.COM ",
		Password:  "Secret123",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.reader@example.com", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NotEqual(t, "Secret123", user.Password, "password is stored hashed")
	assert.True(t, services.VerifyPassword("Secret123", user.Password))

	id, err := auth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{ID: user.ID, Email: user.Email, Role: models.RoleStudent}, id)

	_, _, err = auth.Register(ctx, services.RegisterInput{Email: "NEW.READER@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)
}

func TestRegisterRejectsElevatedRoles(t *testing.T) {
	auth := newAuth(memstore.New())

	for _, role := range []string{"librarian", "ADMIN"} {
		_, _, err := auth.Register(context.Background(), services.RegisterInput{Email: "x@example.com", Password: "Secret123", Role: role})
		assert.ErrorIs(t, err, policy.ErrForbidden, role)
	}

	_, _, err := auth.Register(context.Background(), services.RegisterInput{Email: "x@example.com", Password: "Secret123", Role: "wizard"})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, _, err = auth.Register(context.Background(), services.RegisterInput{Email: "x@example.com", Password: "Secret123", Role: "student"})
	assert.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	auth := newAuth(memstore.New())

	cases := map[string]services.RegisterInput{
		"missing email":   {Password: "Secret123"},
		"malformed email": {Email: "not-an-email", Password: "Secret123"},
		"email no tld":    {Email: "a@b", Password: "Secret123"},
		"short password":  {Email: "a@b.co", Password: "Se1"},
		"no uppercase":    {Email: "a@b.co", Password: "secret123"},
		"no lowercase":    {Email: "a@b.co", Password: "SECRET123"},
		"no digit":        {Email: "a@b.co", Password: "SecretPass"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := auth.Register(context.Background(), in)
			assert.ErrorIs(t, err, services.ErrValidation)
		})
	}
}

func TestCreateAccountAllowsAnyRole(t *testing.T) {
	auth := newAuth(memstore.New())

	user, err := auth.CreateAccount(context.Background(), services.RegisterInput{Email: "head@example.com", Password: "Secret123"}, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)

	_, err = auth.CreateAccount(context.Background(), services.RegisterInput{Email: "x@example.com", Password: "Secret123"}, models.Role("root"))
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(memstore.New())
	registered, _, err := auth.Register(ctx, services.RegisterInput{Email: "reader@example.com", Password: "Secret123"})
	require.NoError(t, err)

	user, token, err := auth.Login(ctx, "Reader@Example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)

	_, _, err = auth.Login(ctx, "reader@example.com", "Wrong1234")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, _, err = auth.Login(ctx, "ghost@example.com", "Secret123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials, "unknown email looks like a bad password")

	_, _, err = auth.Login(ctx, "", "Secret123")
	assert.ErrorIs(t, err, services.ErrValidation)
	_, _, err = auth.Login(ctx, "reader@example.com", "")
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestVerifyTokenRejects(t *testing.T) {
	auth := newAuth(memstore.New())
	user := models.User{ID: 7, Email: "r@example.com", Role: models.RoleLibrarian}

	valid, err := auth.IssueToken(user)
	require.NoError(t, err)
	_, err = auth.VerifyToken(valid)
	require.NoError(t, err)

	sign := func(method jwt.SigningMethod, key any, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	cases := map[string]string{
		"garbage":       "not.a.token",
		"tampered":      tamper(valid),
		"wrong secret":  sign(jwt.SigningMethodHS256, []byte("other"), services.Claims{ID: 7, Role: models.RoleStudent, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}),
		"wrong alg":     sign(jwt.SigningMethodHS512, []byte(testSecret), services.Claims{ID: 7, Role: models.RoleStudent, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}),
		"none alg":      sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, services.Claims{ID: 7, Role: models.RoleStudent, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}),
		"expired":       sign(jwt.SigningMethodHS256, []byte(testSecret), services.Claims{ID: 7, Role: models.RoleStudent, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: past}}),
		"no expiry":     sign(jwt.SigningMethodHS256, []byte(testSecret), services.Claims{ID: 7, Role: models.RoleStudent}),
		"missing id":    sign(jwt.SigningMethodHS256, []byte(testSecret), services.Claims{Role: models.RoleStudent, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}),
		"unknown role":  sign(jwt.SigningMethodHS256, []byte(testSecret), services.Claims{ID: 7, Role: "wizard", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}),
		"empty payload": sign(jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{"exp": future.Unix()}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := auth.VerifyToken(token)
			assert.ErrorIs(t, err, services.ErrInvalidToken)
		})
	}
}

// tamper swaps the payload for one claiming the admin role, keeping the signature.
func tamper(token string) string {
	parts := strings.Split(token, ".")
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"id":7,"email":"r@example.com","role":"admin","exp":4102444800}`))
	return strings.Join(parts, ".")
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	auth := newAuth(s)
	users := services.NewUserService(s)

	registered, _, err := auth.Register(ctx, services.RegisterInput{Email: "me@example.com", Password: "Secret123", FirstName: "Me"})
	require.NoError(t, err)

	profile, err := users.Profile(ctx, models.Identity{ID: registered.ID, Role: models.RoleStudent})
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", profile.Email)
	assert.Equal(t, "Me", profile.FirstName)

	_, err = users.Profile(ctx, models.Identity{ID: 999, Role: models.RoleStudent})
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}
