package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arzan03/LibraryHub/internal/handlers"
	"github.com/arzan03/LibraryHub/internal/policy"
	"github.com/arzan03/LibraryHub/internal/services"
	"github.com/arzan03/LibraryHub/internal/store"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &services.ValidationError{Message: "Title and author are required"}, http.StatusBadRequest, "Title and author are required"},
		{"credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"forbidden", policy.ErrForbidden, http.StatusForbidden, "Access denied"},
		{"wrapped not found", fmt.Errorf("load: %w", store.ErrBookNotFound), http.StatusNotFound, "Book not found"},
		{"loan not found", store.ErrLoanNotFound, http.StatusNotFound, "Loan not found"},
		{"no copies", store.ErrNoCopiesAvailable, http.StatusConflict, "No copies available"},
		{"returned", store.ErrLoanAlreadyReturned, http.StatusConflict, "Loan already returned"},
		{"duplicate", store.ErrDuplicateEmail, http.StatusConflict, "User already exists"},
		{"covers off", services.ErrCoversDisabled, http.StatusServiceUnavailable, "Cover storage is not configured"},
		{"inventory", store.ErrInventoryInconsistent, http.StatusInternalServerError, "Internal server error"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := handlers.StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, msg)
		})
	}
}
