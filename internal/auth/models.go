package auth

import (
	"strings"
	"vet-clinic/internal/apierrors"

	"github.com/google/uuid"
)

// Role is the staff role of a user, which determines the actions the user may perform.
type Role string

const (
	AdminRole        Role = "ADMIN"
	VeterinarianRole Role = "VETERINARIAN"
	ReceptionistRole Role = "RECEPTIONIST"
)

// Roles is a set of roles allowed to perform some action.
type Roles []Role

// Contains checks if the given role belongs to the set.
func (r Roles) Contains(role Role) bool {
	for _, allowed := range r {
		if allowed == role {
			return true
		}
	}
	return false
}

func (r Roles) String() string {
	names := make([]string, len(r))
	for i, role := range r {
		names[i] = string(role)
	}
	return strings.Join(names, ", ")
}

type Credentials struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Validate validates if the credentials given are valid.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return apierrors.NewValidationError("email", "required")
	}
	if c.Password == "" {
		return apierrors.NewValidationError("password", "required")
	}
	return nil
}

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	GrantType    string `json:"grant_type,omitempty"`
}

// Validate validates if the tokens given can be exchanged for new ones.
func (c Tokens) Validate() error {
	if c.RefreshToken == "" {
		return apierrors.NewValidationError("refresh_token", "required")
	}
	if c.GrantType == "" {
		return apierrors.NewValidationError("grant_type", "required")
	}
	if c.GrantType != "refresh_token" {
		return apierrors.NewValidationError("grant_type", "invalid")
	}
	return nil
}

// User is the acting staff member. It is passed explicitly to every operation that is gated by role.
type User struct {
	ID    int64     `json:"-" dbfield:"id"`
	UUID  uuid.UUID `json:"uuid" dbfield:"uuid"`
	Email string    `json:"email" dbfield:"email"`
	Role  Role      `json:"role" dbfield:"role"`
}
