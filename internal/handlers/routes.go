package handlers

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// generateCORS mirrors the headers browser clients of the generation endpoint send.
func generateCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"POST", "OPTIONS"},
		AllowHeaders:    []string{"authorization", "x-client-info", "apikey", "content-type"},

		OptionsResponseStatusCode: http.StatusOK,
	})
}

// RegisterRoutes mounts the generation endpoint and the listings API.
// auth guards everything except health checks and CORS preflight.
func RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc, generate *GenerateHandler, listings *ListingsHandler) {
	router.HandleMethodNotAllowed = true
	router.NoMethod(MethodNotAllowed)

	router.GET("/health", HealthHandler(listings.store != nil))

	gen := router.Group("/")
	gen.Use(generateCORS())
	gen.OPTIONS("/generate-listing", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	gen.POST("/generate-listing", auth, generate.GenerateListing)

	api := router.Group("/api/v1")
	api.Use(auth)
	api.GET("/listings", listings.ListListings)
	api.POST("/listings", listings.CreateListing)
	api.GET("/listings/:listing_id", listings.GetListing)
	api.DELETE("/listings/:listing_id", listings.DeleteListing)
}
