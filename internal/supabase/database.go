package supabase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"listing-generator/internal/listing"
)

const listingColumns = `id, user_id, title, description, bullet_points, price_min, price_max,
	image_url, currency, created_at, updated_at`

// DatabaseClient is the server-side listing repository.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(connectionString string) (*DatabaseClient, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*listing.Listing, error) {
	var l listing.Listing
	var bullets pq.StringArray
	var imageURL sql.NullString
	err := row.Scan(
		&l.ID, &l.UserID, &l.Title, &l.Description, &bullets, &l.PriceMin, &l.PriceMax,
		&imageURL, &l.Currency, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.BulletPoints = []string(bullets)
	if imageURL.Valid {
		l.ImageURL = &imageURL.String
	}
	return &l, nil
}

func (d *DatabaseClient) InsertListing(ctx context.Context, in listing.NewListing) (*listing.Listing, error) {
	row := d.db.QueryRowContext(ctx, `
		INSERT INTO listings (user_id, title, description, bullet_points, price_min, price_max, image_url, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+listingColumns,
		in.UserID, in.Draft.Title, in.Draft.Description, pq.Array(in.Draft.BulletPoints),
		in.Draft.PriceMin, in.Draft.PriceMax, in.ImageURL, in.CurrencyOrDefault(),
	)
	l, err := scanListing(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert listing: %w", err)
	}
	return l, nil
}

func (d *DatabaseClient) GetListing(ctx context.Context, id, userID uuid.UUID) (*listing.Listing, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, listing.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

func (d *DatabaseClient) ListListings(ctx context.Context, userID uuid.UUID) ([]listing.Listing, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

func (d *DatabaseClient) DeleteListing(ctx context.Context, id, userID uuid.UUID) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM listings WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if affected == 0 {
		return listing.ErrNotFound
	}
	return nil
}

func (d *DatabaseClient) Close() error {
	return d.db.Close()
}
