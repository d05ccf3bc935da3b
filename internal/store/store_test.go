package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/keyrelay/keyrelay/internal/models"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *KeymapStore {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.KeyMapping{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewKeymapStore(conn)
}

func TestUpsert_InsertAppliesDefaults(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.Upsert(context.Background(), UpsertParams{
		SKU:       "edu24h",
		InputKey:  "key-abc",
		ProductID: 28,
		APIKey:    "supplier-secret",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if saved.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if saved.GroupName != models.DefaultGroupName {
		t.Fatalf("expected default group, got %q", saved.GroupName)
	}
	if saved.ProviderType != models.DefaultProviderType {
		t.Fatalf("expected default provider, got %q", saved.ProviderType)
	}
	if !saved.IsActive {
		t.Fatalf("expected row active after upsert")
	}
}

func TestUpsert_ConflictOverwritesAndReactivates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, UpsertParams{SKU: "old", InputKey: "key-abc", ProductID: 28, APIKey: "k1"})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if errToggle := s.Toggle(ctx, first.ID); errToggle != nil {
		t.Fatalf("toggle: %v", errToggle)
	}

	second, err := s.Upsert(ctx, UpsertParams{SKU: "new", InputKey: "key-abc", ProductID: 42, APIKey: "k2", ProviderType: "MyShop"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same row, got ids %d and %d", first.ID, second.ID)
	}
	if second.SKU != "new" || second.ProductID != 42 || second.APIKey != "k2" {
		t.Fatalf("expected fields overwritten, got %+v", second)
	}
	if second.ProviderType != "myshop" {
		t.Fatalf("expected provider lowercased, got %q", second.ProviderType)
	}
	if !second.IsActive {
		t.Fatalf("expected upsert to reactivate the row")
	}

	rows, errList := s.ListAll(ctx)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}
}

func TestUpsert_Validation(t *testing.T) {
	s := newTestStore(t)
	// Missing sku, missing input_key, missing api_key, negative product id.
	cases := []UpsertParams{
		{InputKey: "k", ProductID: 1, APIKey: "a"},
		{SKU: "s", ProductID: 1, APIKey: "a"},
		{SKU: "s", InputKey: "k", ProductID: 1},
		{SKU: "s", InputKey: "k", ProductID: -1, APIKey: "a"},
	}
	for i, params := range cases {
		if _, err := s.Upsert(context.Background(), params); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestLookup_IgnoresInactiveRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Upsert(ctx, UpsertParams{SKU: "s", InputKey: "key-abc", ProductID: 1, APIKey: "a"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, errLookup := s.Lookup(ctx, "key-abc"); errLookup != nil {
		t.Fatalf("lookup active: %v", errLookup)
	}

	if errToggle := s.Toggle(ctx, saved.ID); errToggle != nil {
		t.Fatalf("toggle: %v", errToggle)
	}
	if _, errLookup := s.Lookup(ctx, "key-abc"); !errors.Is(errLookup, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive row, got %v", errLookup)
	}

	if _, errLookup := s.Lookup(ctx, "no-such-key"); !errors.Is(errLookup, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown key, got %v", errLookup)
	}
}

func TestToggle_MissingID(t *testing.T) {
	s := newTestStore(t)
	if err := s.Toggle(context.Background(), 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Upsert(ctx, UpsertParams{SKU: "s", InputKey: "key-abc", ProductID: 1, APIKey: "a"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if errDelete := s.Delete(ctx, saved.ID); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	// Absent id is a no-op, not an error.
	if errDelete := s.Delete(ctx, saved.ID); errDelete != nil {
		t.Fatalf("repeat delete: %v", errDelete)
	}

	rows, errList := s.ListAll(ctx)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty store, got %d rows", len(rows))
	}
}

func TestListAll_Ordering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seeds := []UpsertParams{
		{GroupName: "user_b", SKU: "z", InputKey: "k1", ProductID: 1, APIKey: "a"},
		{GroupName: "user_a", SKU: "m", InputKey: "k2", ProductID: 1, APIKey: "a", ProviderType: "zeta"},
		{GroupName: "user_a", SKU: "a", InputKey: "k3", ProductID: 1, APIKey: "a", ProviderType: "alpha"},
		{GroupName: "user_a", SKU: "b", InputKey: "k4", ProductID: 1, APIKey: "a", ProviderType: "alpha"},
	}
	for _, params := range seeds {
		if _, err := s.Upsert(ctx, params); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rows, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]string, 0, len(rows))
	for _, row := range rows {
		got = append(got, row.InputKey)
	}
	want := []string{"k3", "k4", "k2", "k1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}
