package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"listing-generator/internal/models"
)

// HealthHandler reports liveness and whether the listings API has a database behind it.
func HealthHandler(listingsEnabled bool) gin.HandlerFunc {
	listings := "disabled"
	if listingsEnabled {
		listings = "enabled"
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:   "ok",
			Listings: listings,
		})
	}
}
