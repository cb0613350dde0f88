package supabase

import (
	"context"
	"fmt"

	"listing-generator/internal/listing"
)

const listingsTable = "listings"

// listingRow is the insert shape of the listings table.
type listingRow struct {
	UserID       string   `json:"user_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	BulletPoints []string `json:"bullet_points"`
	PriceMin     float64  `json:"price_min"`
	PriceMax     float64  `json:"price_max"`
	ImageURL     *string  `json:"image_url"`
	Currency     string   `json:"currency"`
}

func newListingRow(in listing.NewListing) listingRow {
	return listingRow{
		UserID:       in.UserID.String(),
		Title:        in.Draft.Title,
		Description:  in.Draft.Description,
		BulletPoints: in.Draft.BulletPoints,
		PriceMin:     in.Draft.PriceMin,
		PriceMax:     in.Draft.PriceMax,
		ImageURL:     in.ImageURL,
		Currency:     in.CurrencyOrDefault(),
	}
}

// ListingsClient writes listings through PostgREST as the signed-in user.
type ListingsClient struct {
	supabaseURL string
	anonKey     string
	tokens      TokenSource
}

func NewListingsClient(supabaseURL, anonKey string, tokens TokenSource) *ListingsClient {
	return &ListingsClient{supabaseURL: supabaseURL, anonKey: anonKey, tokens: tokens}
}

func (c *ListingsClient) InsertListing(ctx context.Context, in listing.NewListing) (*listing.Listing, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	client, err := NewUserClient(c.supabaseURL, c.anonKey, token)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []listing.Listing
	_, err = client.From(listingsTable).
		Insert(newListingRow(in), false, "", "representation", "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to insert listing: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("failed to insert listing: no row returned")
	}
	return &rows[0], nil
}
