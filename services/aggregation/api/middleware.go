package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	maxRequestBodySize = 4 * 1024 * 1024
	corsMaxAge         = 12 * time.Hour
)

// LimitBodySize rejects request bodies larger than the accepted agent batch size
func LimitBodySize(next http.Handler) http.Handler {
	return http.MaxBytesHandler(next, maxRequestBodySize)
}

// corsMiddleware allows the dashboard to be served from another origin
func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Api-Key"},
		MaxAge:          corsMaxAge,
	})
}
