package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tobiodua/bankcore/internal/domain"
	"github.com/tobiodua/bankcore/internal/store"
)

// Directory owns customer identity records.
type Directory struct {
	store store.Store
}

// NewDirectory creates a customer directory over the given store.
func NewDirectory(st store.Store) *Directory {
	return &Directory{store: st}
}

// CreateCustomerInput carries the onboarding fields.
type CreateCustomerInput struct {
	FirstName  string
	MiddleName string
	Surname    string
	BirthDate  time.Time
	Email      string
	Phone      string
	Address    string
}

// Create onboards a customer. Email and phone must be unique across all
// customers; collisions fail with domain.ErrDuplicateIdentity.
func (d *Directory) Create(ctx context.Context, in CreateCustomerInput) (*domain.Customer, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if in.FirstName == "" || in.Surname == "" {
		return nil, fmt.Errorf("%w: first name and surname are required", domain.ErrValidation)
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	if in.Phone == "" {
		return nil, fmt.Errorf("%w: a phone number is required", domain.ErrValidation)
	}
	if in.BirthDate.IsZero() {
		return nil, fmt.Errorf("%w: birth date is required", domain.ErrValidation)
	}

	c := &domain.Customer{
		ID:         uuid.New(),
		FirstName:  in.FirstName,
		MiddleName: in.MiddleName,
		Surname:    in.Surname,
		BirthDate:  in.BirthDate,
		Email:      in.Email,
		Phone:      in.Phone,
		Address:    in.Address,
	}
	if err := d.store.CreateCustomer(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Find returns a customer or domain.ErrNotFound.
func (d *Directory) Find(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	return d.store.GetCustomer(ctx, id)
}

// Update applies a patch. Identity fields were written once at onboarding;
// a patch naming any of them fails with domain.ErrImmutableField. Only the
// address is mutable.
func (d *Directory) Update(ctx context.Context, id uuid.UUID, patch domain.CustomerPatch) (*domain.Customer, error) {
	if patch.TouchesIdentity() {
		return nil, domain.ErrImmutableField
	}
	if patch.Address != nil {
		if err := d.store.UpdateCustomerAddress(ctx, id, *patch.Address); err != nil {
			return nil, err
		}
	}
	return d.store.GetCustomer(ctx, id)
}
