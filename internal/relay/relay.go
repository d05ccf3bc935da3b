// Package relay orchestrates key lookup, supplier calls and response
// normalization for the public stock and fetch operations.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/keyrelay/keyrelay/internal/models"
	"github.com/keyrelay/keyrelay/internal/store"
	"github.com/keyrelay/keyrelay/internal/supplier"
	log "github.com/sirupsen/logrus"
)

// Quantity bounds accepted by Fetch.
const (
	MinQuantity = 1
	MaxQuantity = 1000
)

// Status classifies the outcome of a relay operation. The HTTP boundary maps
// every non-OK status to the fixed zero/empty payload; the distinction only
// reaches server-side logs.
type Status int

const (
	// StatusOK means the operation produced a real result.
	StatusOK Status = iota
	// StatusBadInput means the caller's parameters were missing or invalid.
	StatusBadInput
	// StatusNotFound means no active mapping exists for the input key.
	StatusNotFound
	// StatusStoreError means the key store itself failed.
	StatusStoreError
	// StatusUpstreamError means the supplier call failed at the HTTP level or
	// reported a non-success status.
	StatusUpstreamError
	// StatusShapeError means the supplier document could not be normalized.
	StatusShapeError
)

// StockResult is the outcome of a stock check.
type StockResult struct {
	Status Status // Outcome classification.
	Sum    int64  // Matched stock quantity; zero unless StatusOK.
}

// FetchItem is one delivered product in a fetch response.
type FetchItem struct {
	Product string `json:"product"` // Delivered product, serialized to text.
}

// FetchResult is the outcome of a purchase relay.
type FetchResult struct {
	Status Status      // Outcome classification.
	Items  []FetchItem // Delivered products; empty unless StatusOK.
}

// KeymapSource resolves input keys to active supplier configurations.
type KeymapSource interface {
	Lookup(ctx context.Context, inputKey string) (*models.KeyMapping, error)
}

// SupplierAPI is the outbound call surface of the supplier client. Provider
// types currently all share one implementation; provider-specific clients
// would plug in here.
type SupplierAPI interface {
	ListProducts(ctx context.Context, baseURL, apiKey string) (any, error)
	BuyProduct(ctx context.Context, baseURL, apiKey string, productID int64, amount int) (any, error)
}

// Service relays public stock and fetch requests to the supplier.
type Service struct {
	store  KeymapSource // Key mapping lookup.
	client SupplierAPI  // Outbound supplier calls.
}

// NewService constructs a relay service.
func NewService(keymaps KeymapSource, client SupplierAPI) *Service {
	return &Service{store: keymaps, client: client}
}

// Stock resolves the input key and reports the supplier's stock quantity for
// the mapped product.
func (s *Service) Stock(ctx context.Context, key string) StockResult {
	key = strings.TrimSpace(key)
	if key == "" {
		log.Warn("stock: missing key")
		return StockResult{Status: StatusBadInput}
	}

	mapping, errLookup := s.store.Lookup(ctx, key)
	if errLookup != nil {
		if errors.Is(errLookup, store.ErrNotFound) {
			log.WithField("key", key).Warn("stock: unknown or inactive key")
			return StockResult{Status: StatusNotFound}
		}
		log.WithError(errLookup).Error("stock: key store lookup failed")
		return StockResult{Status: StatusStoreError}
	}

	doc, errList := s.client.ListProducts(ctx, mapping.BaseURL, mapping.APIKey)
	if errList != nil {
		log.WithError(errList).WithField("key", key).Warn("stock: supplier list failed")
		return StockResult{Status: StatusUpstreamError}
	}

	root, ok := doc.(map[string]any)
	if !ok {
		log.WithField("key", key).Warn("stock: supplier list response is not an object")
		return StockResult{Status: StatusShapeError}
	}
	if status, _ := root["status"].(string); status != "success" {
		log.WithFields(log.Fields{"key": key, "message": upstreamMessage(root)}).
			Warn("stock: supplier list reported failure")
		return StockResult{Status: StatusUpstreamError}
	}

	products, errCollect := supplier.CollectProducts(root)
	if errCollect != nil {
		log.WithError(errCollect).WithField("key", key).Warn("stock: no product list in supplier response")
		return StockResult{Status: StatusShapeError}
	}

	product, found := supplier.MatchProduct(products, mapping.ProductID)
	if !found {
		log.WithFields(log.Fields{"key": key, "product_id": mapping.ProductID, "products": len(products)}).
			Warn("stock: product id not present in any category")
		return StockResult{Status: StatusShapeError}
	}

	amount, errAmount := supplier.ParseAmount(product["amount"])
	if errAmount != nil {
		log.WithError(errAmount).WithField("key", key).Warn("stock: unparsable amount")
		return StockResult{Status: StatusShapeError}
	}
	return StockResult{Status: StatusOK, Sum: amount}
}

// Fetch resolves the input key, places a purchase for quantity units and
// shapes the supplier's data field into the delivered product list.
func (s *Service) Fetch(ctx context.Context, key string, quantity int) FetchResult {
	key = strings.TrimSpace(key)
	if key == "" {
		log.Warn("fetch: missing key")
		return FetchResult{Status: StatusBadInput}
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		log.WithField("quantity", quantity).Warn("fetch: quantity out of bounds")
		return FetchResult{Status: StatusBadInput}
	}

	mapping, errLookup := s.store.Lookup(ctx, key)
	if errLookup != nil {
		if errors.Is(errLookup, store.ErrNotFound) {
			log.WithField("key", key).Warn("fetch: unknown or inactive key")
			return FetchResult{Status: StatusNotFound}
		}
		log.WithError(errLookup).Error("fetch: key store lookup failed")
		return FetchResult{Status: StatusStoreError}
	}

	doc, errBuy := s.client.BuyProduct(ctx, mapping.BaseURL, mapping.APIKey, mapping.ProductID, quantity)
	if errBuy != nil {
		log.WithError(errBuy).WithField("key", key).Warn("fetch: supplier buy failed")
		return FetchResult{Status: StatusUpstreamError}
	}

	root, ok := doc.(map[string]any)
	if !ok {
		log.WithField("key", key).Warn("fetch: supplier buy response is not an object")
		return FetchResult{Status: StatusShapeError}
	}
	if status, _ := root["status"].(string); status != "success" {
		log.WithFields(log.Fields{"key": key, "message": upstreamMessage(root)}).
			Warn("fetch: supplier buy reported failure")
		return FetchResult{Status: StatusUpstreamError}
	}

	return FetchResult{Status: StatusOK, Items: shapeDelivery(root["data"], quantity)}
}

// shapeDelivery turns the buy response's data field into delivered items.
// A list yields one item per element; any other value is replicated quantity
// times. The length asymmetry mirrors the supplier's observed behavior.
func shapeDelivery(data any, quantity int) []FetchItem {
	if elements, ok := data.([]any); ok {
		items := make([]FetchItem, 0, len(elements))
		for _, element := range elements {
			items = append(items, FetchItem{Product: renderProduct(element)})
		}
		return items
	}

	text := renderProduct(data)
	items := make([]FetchItem, 0, quantity)
	for i := 0; i < quantity; i++ {
		items = append(items, FetchItem{Product: text})
	}
	return items
}

// renderProduct serializes a delivered value to text; strings pass through
// unchanged.
func renderProduct(value any) string {
	if text, ok := value.(string); ok {
		return text
	}
	encoded, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(encoded)
}

// upstreamMessage extracts the supplier's message field for logging.
func upstreamMessage(root map[string]any) string {
	if msg, ok := root["message"].(string); ok {
		return msg
	}
	return "unknown"
}
