package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cartsync/api/controllers"
	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/internal/client"
	"github.com/angelmondragon/cartsync/internal/docstore/memory"
	"github.com/angelmondragon/cartsync/internal/session"
	"github.com/angelmondragon/cartsync/internal/wishlist"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/metrics"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T, env string) http.Handler {
	t.Helper()
	logg := logger.Nop()
	reg := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(reg)
	store := memory.New()
	sess := session.NewManager(nil)

	cartEngine, err := cart.NewEngine(cart.EngineParams{Store: store, Session: sess, Logger: logg, Metrics: syncMetrics})
	if err != nil {
		t.Fatalf("cart engine: %v", err)
	}
	wishEngine, err := wishlist.NewEngine(wishlist.EngineParams{Store: store, Session: sess, Logger: logg, Metrics: syncMetrics})
	if err != nil {
		t.Fatalf("wishlist engine: %v", err)
	}
	c, err := client.New(client.Params{Session: sess, Cart: cartEngine, Wishlist: wishEngine, Logger: logg})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return NewRouter(Params{
		Config:   &config.Config{App: config.AppConfig{Env: env}},
		Logger:   logg,
		Sessions: c,
		Cart:     cartEngine,
		Wishlist: wishEngine,
		Pingers:  map[string]controllers.Pinger{"store": controllers.PingFunc(func(context.Context) error { return nil })},
		Gatherer: reg,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec.Code, env
}

func TestCartRequiresSession(t *testing.T) {
	h := newTestRouter(t, config.AppEnvDev)
	code, env := do(t, h, http.MethodGet, "/api/v1/cart", "")
	if code != http.StatusUnauthorized || env.Error.Code != "NOT_AUTHENTICATED" {
		t.Fatalf("expected 401 NOT_AUTHENTICATED, got %d %+v", code, env.Error)
	}
}

func TestCartFlowOverHTTP(t *testing.T) {
	h := newTestRouter(t, config.AppEnvDev)

	if code, _ := do(t, h, http.MethodPost, "/api/v1/session", `{"user_id":"user-1"}`); code != http.StatusOK {
		t.Fatalf("sign in: %d", code)
	}

	code, _ := do(t, h, http.MethodPost, "/api/v1/cart/items", `{"asin":"P1","name":"Lamp","price":10,"quantity":2}`)
	if code != http.StatusCreated {
		t.Fatalf("add: %d", code)
	}
	code, _ = do(t, h, http.MethodPost, "/api/v1/cart/items/P1/decrement", "")
	if code != http.StatusOK {
		t.Fatalf("decrement: %d", code)
	}

	code, env := do(t, h, http.MethodGet, "/api/v1/cart", "")
	if code != http.StatusOK {
		t.Fatalf("get cart: %d", code)
	}
	var snap struct {
		Items       []map[string]any `json:"items"`
		TotalAmount int              `json:"totalAmount"`
		Status      string           `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(snap.Items) != 1 || snap.TotalAmount != 1 || snap.Status != "idle" {
		t.Fatalf("unexpected cart %+v", snap)
	}

	code, env = do(t, h, http.MethodPost, "/api/v1/cart/items/missing/decrement", "")
	if code != http.StatusNotFound || env.Error.Message != cart.NotFoundMessage {
		t.Fatalf("expected 404 with cart message, got %d %+v", code, env.Error)
	}

	if code, _ := do(t, h, http.MethodDelete, "/api/v1/cart", ""); code != http.StatusOK {
		t.Fatalf("clear: %d", code)
	}
	_, env = do(t, h, http.MethodGet, "/api/v1/cart", "")
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode cart: %v", err)
	}
	if len(snap.Items) != 0 || snap.TotalAmount != 0 {
		t.Fatalf("expected empty cart after clear, got %+v", snap)
	}
}

func TestAddRejectsInvalidProduct(t *testing.T) {
	h := newTestRouter(t, config.AppEnvDev)
	do(t, h, http.MethodPost, "/api/v1/session", `{"user_id":"user-1"}`)

	code, env := do(t, h, http.MethodPost, "/api/v1/cart/items", `{"asin":"P1","name":"","price":10}`)
	if code != http.StatusBadRequest || env.Error.Message != "Invalid product data." {
		t.Fatalf("expected 400 invalid product, got %d %+v", code, env.Error)
	}
}

func TestWishlistDuplicateOverHTTP(t *testing.T) {
	h := newTestRouter(t, config.AppEnvDev)
	do(t, h, http.MethodPost, "/api/v1/session", `{"user_id":"user-1"}`)

	body := `{"asin":"B07","name":"Headphones","price":"59.90"}`
	if code, _ := do(t, h, http.MethodPost, "/api/v1/wishlist/items", body); code != http.StatusCreated {
		t.Fatalf("first add: %d", code)
	}
	code, env := do(t, h, http.MethodPost, "/api/v1/wishlist/items", body)
	if code != http.StatusConflict || env.Error.Message != wishlist.DuplicateMessage {
		t.Fatalf("expected 409 duplicate, got %d %+v", code, env.Error)
	}
}

func TestRawUserSignInDisabledInProd(t *testing.T) {
	h := newTestRouter(t, config.AppEnvProd)
	code, env := do(t, h, http.MethodPost, "/api/v1/session", `{"user_id":"user-1"}`)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %+v", code, env.Error)
	}
}

func TestSignOutClearsSession(t *testing.T) {
	h := newTestRouter(t, config.AppEnvDev)
	do(t, h, http.MethodPost, "/api/v1/session", `{"user_id":"user-1"}`)
	if code, _ := do(t, h, http.MethodDelete, "/api/v1/session", ""); code != http.StatusOK {
		t.Fatalf("sign out: %d", code)
	}
	if code, _ := do(t, h, http.MethodGet, "/api/v1/wishlist", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign out, got %d", code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t, config.AppEnvDev)
	if code, _ := do(t, h, http.MethodGet, "/health/live", ""); code != http.StatusOK {
		t.Fatalf("live: %d", code)
	}
	if code, _ := do(t, h, http.MethodGet, "/health/ready", ""); code != http.StatusOK {
		t.Fatalf("ready: %d", code)
	}

	do(t, h, http.MethodPost, "/api/v1/session", `{"user_id":"user-1"}`)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "sync_") {
		t.Fatalf("expected sync metrics, got %d", rec.Code)
	}
}
