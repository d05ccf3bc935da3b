// Package public registers the caller-facing relay routes.
package public

import (
	"github.com/gin-gonic/gin"
	handlers "github.com/keyrelay/keyrelay/internal/http/api/public/handlers"
	"github.com/keyrelay/keyrelay/internal/relay"
)

// RegisterPublicRoutes registers the health, stock and fetch endpoints.
func RegisterPublicRoutes(r *gin.Engine, service *relay.Service) {
	if r == nil || service == nil {
		return
	}

	relayHandler := handlers.NewRelayHandler(service)
	r.GET("/", relayHandler.Health)
	r.GET("/stock", relayHandler.Stock)
	r.GET("/fetch", relayHandler.Fetch)
}
