// Package admin registers the operator-facing routes behind the shared
// secret gate.
package admin

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	handlers "github.com/keyrelay/keyrelay/internal/http/api/admin/handlers"
	"github.com/keyrelay/keyrelay/internal/store"
	"github.com/keyrelay/keyrelay/internal/webui"
)

// RegisterAdminRoutes registers the admin listing, keymap mutations and the
// debug passthrough. Every route requires the admin_secret query parameter.
func RegisterAdminRoutes(r *gin.Engine, keymaps *store.KeymapStore, client handlers.ProductLister, secret string) error {
	if r == nil || keymaps == nil {
		return nil
	}

	templates, errTemplates := webui.Templates()
	if errTemplates != nil {
		return errTemplates
	}
	r.SetHTMLTemplate(templates)

	gate := secretGate(secret)

	keymapHandler := handlers.NewKeymapHandler(keymaps, secret)
	adminGroup := r.Group("/admin", gate)
	adminGroup.GET("", keymapHandler.Index)
	adminGroup.POST("/keymap", keymapHandler.Save)
	adminGroup.POST("/keymap/:id/toggle", keymapHandler.Toggle)
	adminGroup.POST("/keymap/:id", keymapHandler.Delete)

	debugHandler := handlers.NewDebugHandler(keymaps, client)
	r.GET("/debuglist", gate, debugHandler.ListProducts)

	return nil
}

// secretGate hard-denies any request whose admin_secret query parameter does
// not match the configured secret. No session, no identity, no rate limit.
func secretGate(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.Query("admin_secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
