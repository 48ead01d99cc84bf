package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the frontend origins to call the API with the session cookie.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Range", "ngrok-skip-browser-warning"},
		ExposedHeaders:   []string{"Content-Disposition", "Content-Range", "Accept-Ranges", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
