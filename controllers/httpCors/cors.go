package httpCors

import (
	"os"
	"strings"

	"github.com/rs/cors"
)

// CorsSettings builds the CORS wrapper. Allowed origins come from the
// comma-separated ALLOWED_ORIGINS env var, defaulting to allow-all for
// local development.
func CorsSettings() *cors.Cors {
	origins := []string{"*"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = strings.Split(raw, ",")
	}

	return cors.New(cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Authorization"},
	})
}
