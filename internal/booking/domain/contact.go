package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrContactNotFound is returned when a contact lookup misses.
var ErrContactNotFound = errors.New("contact not found")

// Contact is the person a booking belongs to. Lookup during booking
// creation is by email first, phone second.
type Contact struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Name        string
	Email       string
	Phone       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewContact creates a contact. At least one of email or phone is
// required so automations have a recipient.
func NewContact(workspaceID uuid.UUID, name, email, phone string) (*Contact, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	phone = strings.TrimSpace(phone)

	if name == "" {
		return nil, errors.New("contact name is required")
	}
	if email == "" && phone == "" {
		return nil, errors.New("contact requires an email or phone")
	}

	now := time.Now().UTC()
	return &Contact{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Name:        name,
		Email:       email,
		Phone:       phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
