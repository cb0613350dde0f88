package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"listing-generator/internal/generation"
	"listing-generator/internal/listing"
	"listing-generator/internal/middleware"
	"listing-generator/internal/models"
)

// DraftGenerator produces a listing draft from a payload. Failures are *generation.ProviderError.
type DraftGenerator interface {
	Generate(ctx context.Context, payload listing.Payload) (listing.Draft, error)
}

type GenerateHandler struct {
	generator DraftGenerator
}

func NewGenerateHandler(generator DraftGenerator) *GenerateHandler {
	return &GenerateHandler{generator: generator}
}

// GenerateListing handles POST /generate-listing.
func (h *GenerateHandler) GenerateListing(c *gin.Context) {
	var payload listing.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, models.GenerationErrorResponse{Error: "Invalid JSON body."})
		return
	}

	draft, err := h.generator.Generate(c.Request.Context(), payload)
	if err != nil {
		var perr *generation.ProviderError
		if errors.As(err, &perr) {
			c.JSON(perr.Status, models.GenerationErrorResponse{
				Error:     perr.Message,
				Code:      string(perr.Code),
				Details:   perr.Details,
				Retryable: perr.Retryable,
			})
			return
		}

		log.Error().Err(err).Str("user_id", c.GetString(middleware.UserIDKey)).Msg("listing generation failed")
		c.JSON(http.StatusInternalServerError, models.GenerationErrorResponse{
			Error:   "Listing generation failed.",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.GenerateListingResponse{Draft: draft})
}

// MethodNotAllowed answers requests with an unsupported method on a known route.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, models.GenerationErrorResponse{Error: "Method not allowed."})
}
