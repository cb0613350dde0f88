package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"listing-generator/internal/listing"
	"listing-generator/internal/middleware"
	"listing-generator/internal/models"
)

// ListingStore is the relational store for saved listings, scoped by owner.
type ListingStore interface {
	ListListings(ctx context.Context, userID uuid.UUID) ([]listing.Listing, error)
	GetListing(ctx context.Context, id, userID uuid.UUID) (*listing.Listing, error)
	InsertListing(ctx context.Context, in listing.NewListing) (*listing.Listing, error)
	DeleteListing(ctx context.Context, id, userID uuid.UUID) error
}

type ListingsHandler struct {
	store ListingStore
}

func NewListingsHandler(store ListingStore) *ListingsHandler {
	return &ListingsHandler{store: store}
}

func (h *ListingsHandler) ListListings(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	listings, err := h.store.ListListings(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to list listings",
			Message: err.Error(),
		})
		return
	}
	if listings == nil {
		listings = []listing.Listing{}
	}

	c.JSON(http.StatusOK, models.ListingListResponse{Listings: listings})
}

func (h *ListingsHandler) GetListing(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := listingIDParam(c)
	if !ok {
		return
	}

	item, err := h.store.GetListing(c.Request.Context(), id, userID)
	if errors.Is(err, listing.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "listing not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to get listing",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.ListingResponse{Listing: *item})
}

func (h *ListingsHandler) CreateListing(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req models.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	draft := req.Draft.Normalize()
	if err := draft.Validate(); err != nil {
		var vErr *listing.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid listing draft", Details: vErr.Issues})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid listing draft", Message: err.Error()})
		return
	}

	created, err := h.store.InsertListing(c.Request.Context(), listing.NewListing{
		UserID:   userID,
		Draft:    draft,
		ImageURL: req.ImageURL,
		Currency: req.Currency,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to save listing",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, models.ListingResponse{Listing: *created})
}

func (h *ListingsHandler) DeleteListing(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	id, ok := listingIDParam(c)
	if !ok {
		return
	}

	err := h.store.DeleteListing(c.Request.Context(), id, userID)
	if errors.Is(err, listing.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "listing not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to delete listing",
			Message: err.Error(),
		})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ListingsHandler) requireUser(c *gin.Context) (uuid.UUID, bool) {
	if h.store == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "database not available"})
		return uuid.Nil, false
	}

	userIDStr, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "user id not found"})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}
	return userID, true
}

func listingIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("listing_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid listing id"})
		return uuid.Nil, false
	}
	return id, true
}
