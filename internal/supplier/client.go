// Package supplier talks to the upstream supplier HTTP API and normalizes
// its loosely-typed responses.
package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Supplier API paths, fixed across providers.
const (
	productListPath = "/api/products.php"
	buyProductPath  = "/api/buy_product"
)

// StatusError reports a non-2xx supplier response.
type StatusError struct {
	Code   int    // HTTP status code.
	Detail string // Upstream message when extractable, else raw body.
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("supplier: http error %d", e.Code)
	}
	return fmt.Sprintf("supplier: http error %d: %s", e.Code, e.Detail)
}

// Client issues stock-list and purchase calls against a supplier endpoint.
// It performs no retries; callers decide how failures surface.
type Client struct {
	httpClient     *http.Client
	defaultBaseURL string
}

// NewClient constructs a supplier client with a fixed per-call timeout and a
// fallback base URL for mappings that store none.
func NewClient(timeout time.Duration, defaultBaseURL string) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		defaultBaseURL: strings.TrimSpace(defaultBaseURL),
	}
}

// ListProducts queries the supplier product catalog by credential and returns
// the decoded JSON document.
func (c *Client) ListProducts(ctx context.Context, baseURL, apiKey string) (any, error) {
	endpoint := c.resolveBase(baseURL) + productListPath + "?api_key=" + url.QueryEscape(apiKey)
	req, errBuild := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if errBuild != nil {
		return nil, fmt.Errorf("supplier: build list request: %w", errBuild)
	}
	return c.do(req)
}

// BuyProduct places a purchase order and returns the decoded JSON document.
func (c *Client) BuyProduct(ctx context.Context, baseURL, apiKey string, productID int64, amount int) (any, error) {
	form := url.Values{}
	form.Set("action", "buyProduct")
	form.Set("id", strconv.FormatInt(productID, 10))
	form.Set("amount", strconv.Itoa(amount))
	form.Set("api_key", apiKey)

	endpoint := c.resolveBase(baseURL) + buyProductPath
	req, errBuild := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if errBuild != nil {
		return nil, fmt.Errorf("supplier: build buy request: %w", errBuild)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// resolveBase picks the row's base URL or the configured default, without a
// trailing slash.
func (c *Client) resolveBase(baseURL string) string {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		base = c.defaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

// do executes the request and decodes the JSON body. Non-2xx responses come
// back as *StatusError so callers can distinguish HTTP failures.
func (c *Client) do(req *http.Request) (any, error) {
	resp, errDo := c.httpClient.Do(req)
	if errDo != nil {
		return nil, fmt.Errorf("supplier: request failed: %w", errDo)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.WithError(errClose).Warn("supplier: close response body failed")
		}
	}()

	body, errRead := io.ReadAll(resp.Body)
	if errRead != nil {
		return nil, fmt.Errorf("supplier: read response: %w", errRead)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{Code: resp.StatusCode, Detail: extractDetail(body)}
	}

	// Decode with UseNumber so numeric literals keep their exact text;
	// amount parsing depends on seeing "5.0" rather than a rounded float.
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var doc any
	if errDecode := decoder.Decode(&doc); errDecode != nil {
		return nil, fmt.Errorf("supplier: decode response: %w", errDecode)
	}
	return doc, nil
}

// extractDetail pulls the upstream "message" field out of an error body when
// the body parses as JSON, falling back to the raw text.
func extractDetail(body []byte) string {
	var payload map[string]any
	if errDecode := json.Unmarshal(body, &payload); errDecode == nil {
		if msg, ok := payload["message"].(string); ok && strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}
