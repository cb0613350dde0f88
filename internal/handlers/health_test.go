package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"listing-generator/internal/handlers"
)

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, tt := range []struct {
		enabled bool
		want    string
	}{
		{true, `{"status":"ok","listings":"enabled"}`},
		{false, `{"status":"ok","listings":"disabled"}`},
	} {
		router := gin.New()
		router.GET("/health", handlers.HealthHandler(tt.enabled))

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, tt.want, w.Body.String())
	}
}
