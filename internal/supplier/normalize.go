package supplier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoProducts indicates the list document had the wrong shape or contained
// no products.
var ErrNoProducts = errors.New("supplier: no products found")

// CollectProducts flattens every product from every category of a
// list-products document into one sequence, preserving order and keeping
// duplicates. The document must be an object with a "categories" array;
// non-object categories and non-array product lists are skipped.
func CollectProducts(doc any) ([]map[string]any, error) {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, ErrNoProducts
	}
	categories, ok := root["categories"].([]any)
	if !ok {
		return nil, ErrNoProducts
	}

	var products []map[string]any
	for _, rawCategory := range categories {
		category, okCat := rawCategory.(map[string]any)
		if !okCat {
			continue
		}
		entries, okList := category["products"].([]any)
		if !okList {
			continue
		}
		for _, rawProduct := range entries {
			if product, okProduct := rawProduct.(map[string]any); okProduct {
				products = append(products, product)
			}
		}
	}

	if len(products) == 0 {
		return nil, ErrNoProducts
	}
	return products, nil
}

// MatchProduct returns the first product whose normalized id equals
// productID. Products without a parsable id are skipped; ties resolve
// positionally.
func MatchProduct(products []map[string]any, productID int64) (map[string]any, bool) {
	target := strconv.FormatInt(productID, 10)
	for _, product := range products {
		rawID, present := product["id"]
		if !present || rawID == nil {
			continue
		}
		normalized, ok := normalizeID(rawID)
		if !ok {
			continue
		}
		if normalized == target {
			return product, true
		}
	}
	return nil, false
}

// normalizeID canonicalizes a product id the upstream API may emit as "28",
// 28, 28.0 or "28.0": stringify, parse as float, truncate to integer.
func normalizeID(raw any) (string, bool) {
	s := strings.TrimSpace(stringify(raw))
	if s == "" {
		return "", false
	}
	f, errParse := strconv.ParseFloat(s, 64)
	if errParse != nil {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

// ParseAmount extracts a stock quantity from a product's "amount" value.
// Missing, empty and zero values count as zero. Otherwise every "." is
// stripped from the string form before integer parsing, so "1.234" means
// 1234 — that is how the upstream formats quantities, not a decimal.
func ParseAmount(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
	case json.Number:
		if f, errFloat := v.Float64(); errFloat == nil && f == 0 {
			return 0, nil
		}
	case float64:
		if v == 0 {
			return 0, nil
		}
	case bool:
		if !v {
			return 0, nil
		}
	}

	s := strings.ReplaceAll(strings.TrimSpace(stringify(raw)), ".", "")
	n, errParse := strconv.ParseInt(s, 10, 64)
	if errParse != nil {
		return 0, fmt.Errorf("supplier: unparsable amount %q: %w", stringify(raw), errParse)
	}
	return n, nil
}

// stringify renders a decoded JSON scalar as text. The client decodes with
// UseNumber, so a json.Number carries the upstream's literal digits and
// "5.0" stays "5.0". float64 remains supported for documents decoded
// elsewhere.
func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
