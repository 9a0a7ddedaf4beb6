package models

// Identity is the verified caller attached to a request after token verification.
type Identity struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}
