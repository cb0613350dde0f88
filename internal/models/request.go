package models

import "listing-generator/internal/listing"

type CreateListingRequest struct {
	Draft listing.Draft `json:"draft"`
	// ImageURL is the uploaded input image the draft was generated from, if any.
	ImageURL *string `json:"image_url"`
	Currency string  `json:"currency,omitempty"`
}

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}
