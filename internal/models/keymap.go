package models

import "time"

// Sentinel values applied when the admin form leaves a field blank.
const (
	DefaultGroupName    = "DEFAULT"
	DefaultProviderType = "mail72h"
)

// KeyMapping maps a caller-facing input key to an upstream supplier product
// configuration. Public lookups only ever see active rows.
type KeyMapping struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SKU      string `gorm:"type:varchar(255);not null"`             // Display label, not used for routing.
	InputKey string `gorm:"type:varchar(255);not null;uniqueIndex"` // Caller-facing opaque token.

	ProductID int64 `gorm:"not null"`              // Product id on the supplier side.
	IsActive  bool  `gorm:"not null;default:true"` // Whether public lookups may see this row.

	GroupName    string `gorm:"type:varchar(255);not null;default:'DEFAULT'"` // Admin folder label.
	ProviderType string `gorm:"type:varchar(64);not null;default:'mail72h'"`  // Provider label (routing-inert).

	BaseURL string `gorm:"type:text"` // Supplier endpoint root; empty means use the configured default.
	APIKey  string `gorm:"type:text"` // Supplier credential.

	// Timestamps stay nullable so adding them to legacy tables is a valid
	// ALTER on SQLite.
	CreatedAt time.Time `gorm:"autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"autoUpdateTime"` // Last update timestamp.
}

// TableName keeps the legacy table name used by earlier deployments.
func (KeyMapping) TableName() string { return "keymaps" }
