package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer is an identity record. Identity fields are written once at
// onboarding and never change; customers are never hard-deleted so that
// account and posting history stays referentially intact.
type Customer struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	MiddleName string    `json:"middle_name,omitempty"`
	Surname    string    `json:"surname"`
	BirthDate  time.Time `json:"birth_date"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
}

// CustomerPatch carries the fields a caller may attempt to change after
// onboarding. Only the address is mutable; any other non-nil field is
// rejected with ErrImmutableField.
type CustomerPatch struct {
	Address    *string `json:"address,omitempty"`
	FirstName  *string `json:"first_name,omitempty"`
	MiddleName *string `json:"middle_name,omitempty"`
	Surname    *string `json:"surname,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	BirthDate  *string `json:"birth_date,omitempty"`
}

// TouchesIdentity reports whether the patch attempts to modify an immutable
// identity field.
func (p CustomerPatch) TouchesIdentity() bool {
	return p.FirstName != nil || p.MiddleName != nil || p.Surname != nil ||
		p.Email != nil || p.Phone != nil || p.BirthDate != nil
}
