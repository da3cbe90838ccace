package checkout_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Checkout/internal/auth"
	"Checkout/internal/basket"
	"Checkout/internal/catalog"
	"Checkout/internal/checkout"
	"Checkout/internal/pricing"
	"Checkout/pkg/kit"
)

const jwtSecret = "0123456789abcdef0123456789abcdef"

type env struct {
	ts      *httptest.Server
	tokens  *auth.TokenMaker
	metrics *checkout.Metrics
}

type failingStore struct{ checkout.Store }

func (failingStore) Ping(context.Context) error                     { return errors.New("db down") }
func (failingStore) Create(context.Context, checkout.Receipt) error { return errors.New("db down") }

// collidingStore reports an id collision for the first n creates.
type collidingStore struct {
	*checkout.MemStore
	n     int
	calls int
}

func (s *collidingStore) Create(ctx context.Context, rc checkout.Receipt) error {
	s.calls++
	if s.calls <= s.n {
		return fmt.Errorf("insert receipt: %w", checkout.ErrReceiptExists)
	}
	return s.MemStore.Create(ctx, rc)
}

func newEnv(t *testing.T, store checkout.Store, rateLimit int) *env {
	t.Helper()

	snap, err := catalog.NewSnapshot(catalog.ReferenceProducts())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := checkout.NewMetrics(reg)
	tokens := auth.NewTokenMaker(jwtSecret)

	s := &checkout.Server{
		Calculator: basket.NewCalculator(snap, snap, pricing.DefaultSet()),
		Store:      store,
		Log:        zap.NewNop(),
		Metrics:    metrics,
	}

	h := checkout.NewHandler(s, checkout.HTTPDeps{
		Log:            zap.NewNop(),
		Service:        "checkout",
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   "metrics-token",
		Tokens:         tokens,
		RateLimit:      rateLimit,
		Catalog:        &catalog.Server{Catalog: snap, Store: catalog.NewMemStore()},
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return &env{ts: ts, tokens: tokens, metrics: metrics}
}

func (e *env) token(t *testing.T, shopper string) string {
	t.Helper()
	tok, err := e.tokens.New(shopper, time.Minute)
	require.NoError(t, err)
	return tok
}

func doRaw(t *testing.T, method, url, body, token string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestQuote(t *testing.T) {
	e := newEnv(t, checkout.NewMemStore(), 0)

	tests := []struct {
		name string
		body string
		want int64
	}{
		{name: "empty", body: `{"items":[]}`, want: 0},
		{name: "melons and limes", body: `{"items":["Melon","Lime","Lime","Melon","Lime"]}`, want: 80},
		{name: "one of each", body: `{"items":["Apple","Banana","Melon","Lime"]}`, want: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := doRaw(t, http.MethodPost, e.ts.URL+"/checkout/total", tt.body, "")
			require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

			var q basket.Quote
			require.NoError(t, json.Unmarshal(raw, &q))
			require.Equal(t, tt.want, q.Total)
		})
	}

	require.Equal(t, float64(3), testutil.ToFloat64(e.metrics.Priced))
}

func TestQuote_Rejections(t *testing.T) {
	e := newEnv(t, checkout.NewMemStore(), 0)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{name: "missing items", body: `{}`, status: http.StatusBadRequest, message: "invalid basket"},
		{name: "null items", body: `{"items":null}`, status: http.StatusBadRequest, message: "invalid basket"},
		{name: "items not a list", body: `{"items":"Apple"}`, status: http.StatusBadRequest, message: "invalid basket"},
		{name: "unknown field", body: `{"items":[],"coupon":"x"}`, status: http.StatusBadRequest, message: "invalid basket"},
		{name: "trailing data", body: `{"items":[]}{}`, status: http.StatusBadRequest, message: "invalid basket"},
		{
			name:    "unknown item",
			body:    `{"items":["Apple","UnknownItem","Banana"]}`,
			status:  http.StatusUnprocessableEntity,
			message: "Unknown items found: UnknownItem",
		},
		{
			name:    "case sensitive",
			body:    `{"items":["apple","APPLE","apple"]}`,
			status:  http.StatusUnprocessableEntity,
			message: "Unknown items found: apple, APPLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := doRaw(t, http.MethodPost, e.ts.URL+"/checkout/total", tt.body, "")
			require.Equal(t, tt.status, resp.StatusCode, string(raw))

			var er kit.ErrorResponse
			require.NoError(t, json.Unmarshal(raw, &er))
			require.Equal(t, tt.message, er.Error)
		})
	}

	require.Equal(t, float64(5), testutil.ToFloat64(e.metrics.Rejected.WithLabelValues("invalid_input")))
	require.Equal(t, float64(2), testutil.ToFloat64(e.metrics.Rejected.WithLabelValues("unknown_items")))
	require.Zero(t, testutil.ToFloat64(e.metrics.Priced))
}

func TestQuote_UnknownItemsDetails(t *testing.T) {
	e := newEnv(t, checkout.NewMemStore(), 0)

	resp, raw := doRaw(t, http.MethodPost, e.ts.URL+"/checkout/total", `{"items":["Kiwi","Apple","Fig","Kiwi"]}`, "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var er struct {
		Error   string `json:"error"`
		Details struct {
			UnknownItems []string `json:"unknown_items"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(raw, &er))
	require.Equal(t, []string{"Kiwi", "Fig"}, er.Details.UnknownItems)
}

func TestQuote_RateLimited(t *testing.T) {
	e := newEnv(t, checkout.NewMemStore(), 2)

	for i := 0; i < 2; i++ {
		resp, _ := doRaw(t, http.MethodPost, e.ts.URL+"/checkout/total", `{"items":["Apple"]}`, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, _ := doRaw(t, http.MethodPost, e.ts.URL+"/checkout/total", `{"items":["Apple"]}`, "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestReceipts_HappyPath(t *testing.T) {
	e := newEnv(t, checkout.NewMemStore(), 0)
	tok := e.token(t, "s_alice")

	body := `{"items":["Apple","Apple","Apple","Apple","Banana","Banana","Melon","Melon","Melon","Lime","Lime","Lime","Lime","Lime"]}`
	resp, raw := doRaw(t, http.MethodPost, e.ts.URL+"/receipts", body, tok)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	var created checkout.Receipt
	require.NoError(t, json.Unmarshal(raw, &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "s_alice", created.ShopperID)
	require.Equal(t, int64(340), created.TotalCents)
	require.Len(t, created.Lines, 4)
	require.Len(t, created.Items, 14)

	resp, raw = doRaw(t, http.MethodGet, e.ts.URL+"/receipts/"+created.ID, "", tok)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var got checkout.Receipt
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, created.TotalCents, got.TotalCents)
	require.Equal(t, created.Lines, got.Lines)
}

func TestReceipts_Access(t *testing.T) {
	e := newEnv(t, checkout.NewMemStore(), 0)
	alice := e.token(t, "s_alice")
	bob := e.token(t, "s_bob")

	resp, _ := doRaw(t, http.MethodPost, e.ts.URL+"/receipts", `{"items":["Apple"]}`, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw := doRaw(t, http.MethodPost, e.ts.URL+"/receipts", `{"items":["Apple"]}`, alice)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created checkout.Receipt
	require.NoError(t, json.Unmarshal(raw, &created))

	resp, _ = doRaw(t, http.MethodGet, e.ts.URL+"/receipts/"+created.ID, "", bob)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doRaw(t, http.MethodGet, e.ts.URL+"/receipts/r_missing", "", alice)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReceipts_UnknownItemsNotStored(t *testing.T) {
	store := checkout.NewMemStore()
	e := newEnv(t, store, 0)

	resp, raw := doRaw(t, http.MethodPost, e.ts.URL+"/receipts", `{"items":["Apple","UnknownItem"]}`, e.token(t, "s_alice"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, string(raw))
}

func TestReceipts_StoreFailure(t *testing.T) {
	e := newEnv(t, failingStore{}, 0)

	resp, _ := doRaw(t, http.MethodPost, e.ts.URL+"/receipts", `{"items":["Apple"]}`, e.token(t, "s_alice"))
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, _ = doRaw(t, http.MethodGet, e.ts.URL+"/readyz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestReceipts_IDCollision(t *testing.T) {
	tests := []struct {
		name       string
		collisions int
		status     int
		calls      int
	}{
		{name: "retried once", collisions: 1, status: http.StatusCreated, calls: 2},
		{name: "conflict", collisions: 5, status: http.StatusConflict, calls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &collidingStore{MemStore: checkout.NewMemStore(), n: tt.collisions}
			e := newEnv(t, store, 0)

			resp, raw := doRaw(t, http.MethodPost, e.ts.URL+"/receipts", `{"items":["Apple"]}`, e.token(t, "s_alice"))
			require.Equal(t, tt.status, resp.StatusCode, string(raw))
			require.Equal(t, tt.calls, store.calls)
		})
	}
}

func TestHealthReadyAndCatalog(t *testing.T) {
	e := newEnv(t, checkout.NewMemStore(), 0)

	resp, _ := doRaw(t, http.MethodGet, e.ts.URL+"/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRaw(t, http.MethodGet, e.ts.URL+"/readyz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := doRaw(t, http.MethodGet, e.ts.URL+"/products/Melon", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p catalog.Product
	require.NoError(t, json.Unmarshal(raw, &p))
	require.Equal(t, pricing.BuyOneGetOneFree, p.Policy)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, checkout.NewMemStore(), 0)

	resp, _ := doRaw(t, http.MethodGet, e.ts.URL+"/metrics", "", "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := doRaw(t, http.MethodGet, e.ts.URL+"/metrics", "", "metrics-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(raw), "baskets_priced_total")
}
