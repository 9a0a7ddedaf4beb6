package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arzan03/LibraryHub/internal/models"
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name     string
		role     models.Role
		required []models.Role
		want     bool
	}{
		{"librarian may manage catalog", models.RoleLibrarian, ManageCatalog, true},
		{"admin may manage catalog", models.RoleAdmin, ManageCatalog, true},
		{"student may not manage catalog", models.RoleStudent, ManageCatalog, false},
		{"unknown role is denied", models.Role("superuser"), []models.Role{"superuser"}, false},
		{"empty rule denies everyone", models.RoleAdmin, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := models.Identity{ID: 1, Role: tt.role}
			assert.Equal(t, tt.want, Allow(id, tt.required...))
		})
	}
}

func TestRuleCheck(t *testing.T) {
	student := models.Identity{ID: 7, Role: models.RoleStudent}
	admin := models.Identity{ID: 8, Role: models.RoleAdmin}

	assert.ErrorIs(t, ViewReports.Check(student), ErrForbidden)
	assert.NoError(t, ViewReports.Check(admin))
	assert.True(t, ManageLoans.Allows(admin))
	assert.False(t, ManageLoans.Allows(student))
}
