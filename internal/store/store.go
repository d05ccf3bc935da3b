// Package store persists key mappings and implements the insert-or-overwrite
// semantics the admin surface relies on.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keyrelay/keyrelay/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound indicates no matching key mapping exists.
var ErrNotFound = errors.New("store: keymap not found")

// KeymapStore provides access to persisted key mappings.
type KeymapStore struct {
	db *gorm.DB // Database handle for keymap records.
}

// NewKeymapStore constructs a KeymapStore.
func NewKeymapStore(db *gorm.DB) *KeymapStore {
	return &KeymapStore{db: db}
}

// UpsertParams holds inputs for creating or overwriting a key mapping.
type UpsertParams struct {
	GroupName    string // Folder label; blank falls back to the DEFAULT sentinel.
	SKU          string // Display label.
	InputKey     string // Caller-facing token; conflict target.
	ProductID    int64  // Supplier product id; must be non-negative.
	APIKey       string // Supplier credential.
	ProviderType string // Provider label; blank falls back to the default, stored lowercase.
	BaseURL      string // Supplier endpoint root; may be blank.
}

// Lookup returns the active mapping for inputKey, or ErrNotFound. Inactive
// rows are invisible here.
func (s *KeymapStore) Lookup(ctx context.Context, inputKey string) (*models.KeyMapping, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store: not initialized")
	}
	key := strings.TrimSpace(inputKey)
	if key == "" {
		return nil, ErrNotFound
	}

	var row models.KeyMapping
	errFind := s.db.WithContext(ctx).
		Where("input_key = ? AND is_active = ?", key, true).
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: lookup: %w", errFind)
	}
	return &row, nil
}

// Upsert inserts a mapping or, on input_key conflict, overwrites every
// mutable field and reactivates the row.
func (s *KeymapStore) Upsert(ctx context.Context, params UpsertParams) (*models.KeyMapping, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store: not initialized")
	}

	sku := strings.TrimSpace(params.SKU)
	inputKey := strings.TrimSpace(params.InputKey)
	apiKey := strings.TrimSpace(params.APIKey)
	if sku == "" || inputKey == "" || apiKey == "" {
		return nil, fmt.Errorf("store: sku, input_key and api_key are required")
	}
	if params.ProductID < 0 {
		return nil, fmt.Errorf("store: product_id must be non-negative")
	}

	groupName := strings.TrimSpace(params.GroupName)
	if groupName == "" {
		groupName = models.DefaultGroupName
	}
	providerType := strings.ToLower(strings.TrimSpace(params.ProviderType))
	if providerType == "" {
		providerType = models.DefaultProviderType
	}

	now := time.Now().UTC()
	record := models.KeyMapping{
		SKU:          sku,
		InputKey:     inputKey,
		ProductID:    params.ProductID,
		IsActive:     true,
		GroupName:    groupName,
		ProviderType: providerType,
		BaseURL:      strings.TrimSpace(params.BaseURL),
		APIKey:       apiKey,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "input_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"group_name", "sku", "product_id", "api_key",
			"is_active", "provider_type", "base_url", "updated_at",
		}),
	}).Create(&record).Error
	if errUpsert != nil {
		return nil, fmt.Errorf("store: upsert: %w", errUpsert)
	}

	var saved models.KeyMapping
	if errFind := s.db.WithContext(ctx).Where("input_key = ?", inputKey).First(&saved).Error; errFind != nil {
		return nil, fmt.Errorf("store: reload after upsert: %w", errFind)
	}
	return &saved, nil
}

// Toggle flips the active flag of the mapping with the given id.
func (s *KeymapStore) Toggle(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store: not initialized")
	}

	var row models.KeyMapping
	if errFind := s.db.WithContext(ctx).First(&row, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("store: toggle: %w", errFind)
	}

	errUpdate := s.db.WithContext(ctx).Model(&models.KeyMapping{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  !row.IsActive,
			"updated_at": time.Now().UTC(),
		}).Error
	if errUpdate != nil {
		return fmt.Errorf("store: toggle: %w", errUpdate)
	}
	return nil
}

// Delete removes the mapping with the given id. Deleting an absent id is a
// no-op.
func (s *KeymapStore) Delete(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store: not initialized")
	}
	if errDelete := s.db.WithContext(ctx).Delete(&models.KeyMapping{}, id).Error; errDelete != nil {
		return fmt.Errorf("store: delete: %w", errDelete)
	}
	return nil
}

// ListAll returns every mapping ordered for stable grouped rendering.
func (s *KeymapStore) ListAll(ctx context.Context) ([]models.KeyMapping, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store: not initialized")
	}
	var rows []models.KeyMapping
	errFind := s.db.WithContext(ctx).
		Order("group_name ASC, provider_type ASC, sku ASC, id ASC").
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("store: list: %w", errFind)
	}
	return rows, nil
}
