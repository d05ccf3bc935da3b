package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/keyrelay/keyrelay/internal/relay"
	log "github.com/sirupsen/logrus"
)

// RelayHandler serves the public stock and fetch endpoints. Every failure is
// mapped to the fixed zero/empty success payload here and nowhere else;
// callers can never tell "no stock" from "upstream down".
type RelayHandler struct {
	relay *relay.Service // Relay orchestration.
}

// NewRelayHandler constructs a RelayHandler.
func NewRelayHandler(service *relay.Service) *RelayHandler {
	return &RelayHandler{relay: service}
}

// Stock handles GET /stock. Always 200 with {"sum": n}.
func (h *RelayHandler) Stock(c *gin.Context) {
	result := h.relay.Stock(c.Request.Context(), c.Query("key"))
	if result.Status != relay.StatusOK {
		c.JSON(http.StatusOK, gin.H{"sum": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sum": result.Sum})
}

// Fetch handles GET /fetch. Always 200 with a (possibly empty) product list.
func (h *RelayHandler) Fetch(c *gin.Context) {
	quantityRaw := strings.TrimSpace(c.Query("quantity"))
	quantity, errParse := strconv.Atoi(quantityRaw)
	if quantityRaw == "" || errParse != nil {
		log.WithField("quantity", quantityRaw).Warn("fetch: invalid quantity")
		c.JSON(http.StatusOK, []relay.FetchItem{})
		return
	}

	result := h.relay.Fetch(c.Request.Context(), c.Query("key"), quantity)
	if result.Status != relay.StatusOK {
		c.JSON(http.StatusOK, []relay.FetchItem{})
		return
	}
	items := result.Items
	if items == nil {
		items = []relay.FetchItem{}
	}
	c.JSON(http.StatusOK, items)
}

// Health handles GET /. Plain "OK" so upstream shop software can probe the
// relay.
func (h *RelayHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
