package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/keyrelay/keyrelay/internal/http/api/public"
	"github.com/keyrelay/keyrelay/internal/models"
	"github.com/keyrelay/keyrelay/internal/relay"
	"github.com/keyrelay/keyrelay/internal/store"
	"github.com/keyrelay/keyrelay/internal/supplier"
	"gorm.io/gorm"
)

// newPublicServer wires an in-memory store, a stub supplier and the public
// routes into a test engine.
func newPublicServer(t *testing.T, supplierResponse string) (*gin.Engine, *store.KeymapStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.KeyMapping{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	keymaps := store.NewKeymapStore(conn)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(supplierResponse))
	}))
	t.Cleanup(upstream.Close)

	client := supplier.NewClient(time.Second, upstream.URL)
	engine := gin.New()
	public.RegisterPublicRoutes(engine, relay.NewService(keymaps, client))
	return engine, keymaps
}

func seedKey(t *testing.T, keymaps *store.KeymapStore, productID int64) *models.KeyMapping {
	t.Helper()
	saved, err := keymaps.Upsert(context.Background(), store.UpsertParams{
		SKU: "edu24h", InputKey: "key-abc", ProductID: productID, APIKey: "supplier-secret",
	})
	if err != nil {
		t.Fatalf("seed key: %v", err)
	}
	return saved
}

func TestHealth(t *testing.T) {
	engine, _ := newPublicServer(t, `{}`)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestStock_UnknownOrInactiveKeyReturnsZero(t *testing.T) {
	engine, keymaps := newPublicServer(t,
		`{"status":"success","categories":[{"products":[{"id":2,"amount":5}]}]}`)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock?key=no-such-key", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != `{"sum":0}` {
		t.Fatalf("expected zero sum, got %s", rec.Body.String())
	}

	saved := seedKey(t, keymaps, 2)
	if errToggle := keymaps.Toggle(context.Background(), saved.ID); errToggle != nil {
		t.Fatalf("toggle: %v", errToggle)
	}
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock?key=key-abc", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"sum":0}` {
		t.Fatalf("inactive key: expected 200 zero sum, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestStock_MatchedAmount(t *testing.T) {
	engine, keymaps := newPublicServer(t,
		`{"status":"success","categories":[
			{"products":[{"id":"1.0","amount":"2"}]},
			{"products":[{"id":2,"amount":5}]}
		]}`)
	seedKey(t, keymaps, 2)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock?key=key-abc", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"sum":5}` {
		t.Fatalf("expected sum 5, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestStock_FractionalAmountLiteral(t *testing.T) {
	// The upstream writes amounts with "." as a thousands mark, so a JSON
	// 5.0 counts as fifty even when emitted as a number.
	engine, keymaps := newPublicServer(t,
		`{"status":"success","categories":[{"products":[{"id":2,"amount":5.0}]}]}`)
	seedKey(t, keymaps, 2)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock?key=key-abc", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"sum":50}` {
		t.Fatalf("expected sum 50, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestStock_UpstreamDownStillReturnsZero(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&models.KeyMapping{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	keymaps := store.NewKeymapStore(conn)
	seedKey(t, keymaps, 2)

	// Point the client at a server that is already gone.
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	upstream.Close()

	engine := gin.New()
	public.RegisterPublicRoutes(engine, relay.NewService(keymaps, supplier.NewClient(time.Second, upstream.URL)))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock?key=key-abc", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"sum":0}` {
		t.Fatalf("expected 200 zero sum when upstream down, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestFetch_QuantityBounds(t *testing.T) {
	engine, keymaps := newPublicServer(t, `{"status":"success","data":"X"}`)
	seedKey(t, keymaps, 2)

	for _, query := range []string{
		"/fetch?key=key-abc&quantity=0",
		"/fetch?key=key-abc&quantity=1001",
		"/fetch?key=key-abc&quantity=abc",
		"/fetch?key=key-abc",
	} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, query, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", query, rec.Code)
		}
		if rec.Body.String() != "[]" {
			t.Fatalf("%s: expected empty list, got %s", query, rec.Body.String())
		}
	}
}

func TestFetch_ScalarReplication(t *testing.T) {
	engine, keymaps := newPublicServer(t, `{"status":"success","data":"X"}`)
	seedKey(t, keymaps, 2)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?key=key-abc&quantity=3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var items []map[string]string
	if errDecode := json.Unmarshal(rec.Body.Bytes(), &items); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for _, item := range items {
		if item["product"] != "X" {
			t.Fatalf("expected product X, got %q", item["product"])
		}
	}
}

func TestFetch_UnknownKeyReturnsEmptyList(t *testing.T) {
	engine, _ := newPublicServer(t, `{"status":"success","data":"X"}`)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fetch?key=nope&quantity=2", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "[]" {
		t.Fatalf("expected 200 empty list, got %d %s", rec.Code, rec.Body.String())
	}
}
