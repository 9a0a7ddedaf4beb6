// Package policy decides whether an identity may perform a role-gated action.
package policy

import (
	"errors"

	"github.com/arzan03/LibraryHub/internal/models"
)

// ErrForbidden is returned by Check when the identity lacks every required role.
var ErrForbidden = errors.New("access denied")

// Rule is the set of roles allowed to perform an action. An empty rule allows nobody.
type Rule []models.Role

var (
	ManageCatalog = Rule{models.RoleLibrarian, models.RoleAdmin}
	ViewReports   = Rule{models.RoleLibrarian, models.RoleAdmin}
	ManageLoans   = Rule{models.RoleLibrarian, models.RoleAdmin}
)

// Allows reports whether id holds one of the rule's roles.
func (r Rule) Allows(id models.Identity) bool {
	return Allow(id, r...)
}

// Check is Allows expressed as an error.
func (r Rule) Check(id models.Identity) error {
	if !r.Allows(id) {
		return ErrForbidden
	}
	return nil
}

// Allow reports whether id holds one of the required roles.
func Allow(id models.Identity, required ...models.Role) bool {
	if !id.Role.Valid() {
		return false
	}
	for _, role := range required {
		if id.Role == role {
			return true
		}
	}
	return false
}
