package models

import "listing-generator/internal/listing"

type GenerateListingResponse struct {
	Draft listing.Draft `json:"draft"`
}

// GenerationErrorResponse is the failure body of POST /generate-listing.
type GenerationErrorResponse struct {
	Error     string      `json:"error"`
	Code      string      `json:"code,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
}

type ListingResponse struct {
	Listing listing.Listing `json:"listing"`
}

type ListingListResponse struct {
	Listings []listing.Listing `json:"listings"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Listings string `json:"listings"`
}
