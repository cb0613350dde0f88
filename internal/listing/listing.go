package listing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const DefaultCurrency = "USD"

// Listing is a saved draft owned by the relational store.
type Listing struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Draft
	ImageURL  *string   `json:"image_url"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewListing is the insert input for a listing.
type NewListing struct {
	UserID   uuid.UUID
	Draft    Draft
	ImageURL *string
	Currency string
}

// CurrencyOrDefault returns the listing currency, USD when unset.
func (n NewListing) CurrencyOrDefault() string {
	if n.Currency == "" {
		return DefaultCurrency
	}
	return n.Currency
}

// ErrNotFound is returned when a listing does not exist or belongs to another user.
var ErrNotFound = errors.New("listing not found")
