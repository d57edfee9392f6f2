package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	authsvc "github.com/hondusoft/fieldsales-backend/internal/auth"
	cartsvc "github.com/hondusoft/fieldsales-backend/internal/cart"
	collectionsvc "github.com/hondusoft/fieldsales-backend/internal/collections"
	"github.com/hondusoft/fieldsales-backend/pkg/auth"
	"github.com/hondusoft/fieldsales-backend/pkg/config"
	"github.com/hondusoft/fieldsales-backend/pkg/db/models"
	"github.com/hondusoft/fieldsales-backend/pkg/logger"
	"github.com/hondusoft/fieldsales-backend/pkg/metrics"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessions struct{}

func (stubSessions) UpstreamToken(ctx context.Context, sessionID string) (string, error) {
	return "up-tok", nil
}

type stubIdemStore struct {
	data map[string]string
}

func newStubIdemStore() *stubIdemStore {
	return &stubIdemStore{data: make(map[string]string)}
}

func (s *stubIdemStore) Get(_ context.Context, key string) (string, error) {
	return s.data[key], nil
}

func (s *stubIdemStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	s.data[key] = str
	return true, nil
}

func (s *stubIdemStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *stubIdemStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("stub:%s:%s", scope, id)
}

type stubLimiter struct {
	counts map[string]int64
}

func newStubLimiter() *stubLimiter {
	return &stubLimiter{counts: make(map[string]int64)}
}

func (s *stubLimiter) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.counts[key]++
	return s.counts[key], nil
}

func (s *stubLimiter) RateLimitKey(scope string) string {
	return "rl:" + scope
}

type stubCollectionsService struct{}

func (stubCollectionsService) Record(ctx context.Context, salesRepCode, upstreamToken string, input collectionsvc.RecordInput) (*sap.IncomingPayment, error) {
	return &sap.IncomingPayment{DocEntry: 3001, DocNum: 3001}, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, userName, password string) (*authsvc.LoginResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Logout(ctx context.Context, sessionID string) error {
	return nil
}

type stubCatalogService struct{}

func (stubCatalogService) ListProducts(ctx context.Context, upstreamToken string, query sap.ProductQuery) (*sap.ProductPage, error) {
	return &sap.ProductPage{}, nil
}

type stubCartService struct{}

func (stubCartService) Snapshot(ctx context.Context, salesRepCode string) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCartService) AddLineItem(ctx context.Context, salesRepCode string, input cartsvc.AddItemInput) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCartService) UpdateLineItem(ctx context.Context, salesRepCode, itemCode string, input cartsvc.UpdateItemInput) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCartService) RemoveLineItem(ctx context.Context, salesRepCode, itemCode string) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCartService) ClearCart(ctx context.Context, salesRepCode string) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCartService) SetCustomer(ctx context.Context, salesRepCode string, customer sap.Customer) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCartService) ClearCustomer(ctx context.Context, salesRepCode string) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCartService) SetComments(ctx context.Context, salesRepCode, comments string) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCartService) EnterEditMode(ctx context.Context, salesRepCode, upstreamToken string, docEntry int) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCartService) ClearEditMode(ctx context.Context, salesRepCode string) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (stubCartService) Load(ctx context.Context, salesRepCode string) (*models.Cart, error) {
	return &models.Cart{}, nil
}

func (stubCartService) CompleteSubmission(ctx context.Context, salesRepCode string, docEntry int) error {
	return nil
}

type stubOrdersService struct {
	submitted int
}

func (s *stubOrdersService) Submit(ctx context.Context, salesRepCode, upstreamToken string) (*sap.Order, error) {
	s.submitted++
	return &sap.Order{DocEntry: 900, DocTotal: decimal.NewFromInt(120)}, nil
}

func (s *stubOrdersService) GetOrder(ctx context.Context, upstreamToken string, docEntry int) (*sap.Order, error) {
	return &sap.Order{DocEntry: docEntry}, nil
}

func (s *stubOrdersService) LastOrder(ctx context.Context, salesRepCode, upstreamToken string) (*sap.Order, error) {
	return &sap.Order{DocEntry: 900}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:    time.Minute,
			LoginUserLimit: 1000,
			LoginIPLimit:   1000,
		},
	}
}

func newTestRouter(cfg *config.Config, ordersService *stubOrdersService) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	registry := prometheus.NewRegistry()
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		newStubIdemStore(),
		newStubLimiter(),
		stubSessions{},
		metrics.NewHTTPMetrics(registry),
		registry,
		stubAuthService{},
		stubCatalogService{},
		stubCartService{},
		ordersService,
		stubCollectionsService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		SalesRepCode: "7",
		FullName:     "Test Rep",
		SessionID:    "sess-1",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), &stubOrdersService{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := newTestRouter(testConfig(), &stubOrdersService{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}

func TestLoginRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig(), &stubOrdersService{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestCartRequiresJWT(t *testing.T) {
	router := newTestRouter(testConfig(), &stubOrdersService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCartFetchSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubOrdersService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for cart fetch got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestOrderSubmitRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrdersService{}
	router := newTestRouter(cfg, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.submitted != 0 {
		t.Fatal("submission must not run without an idempotency key")
	}
}

func TestOrderSubmitReplaysOnRetry(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrdersService{}
	router := newTestRouter(cfg, svc)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
		req.Header.Set("Idempotency-Key", "submit-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", first.Code, first.Body.String())
	}
	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", second.Code)
	}
	if svc.submitted != 1 {
		t.Fatalf("expected a single submission, got %d", svc.submitted)
	}

	var envelope struct {
		Data sap.Order `json:"data"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if envelope.Data.DocEntry != 900 {
		t.Fatalf("unexpected replayed order: %+v", envelope.Data)
	}
}

func TestOrderDetailRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubOrdersService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/42", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for order detail got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCollectionsRouteRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubOrdersService{})
	body := `{"cardCode":"C0001","method":"cash","amount":"1500","account":"CTA01","invoices":[{"docEntry":77,"sumApplied":"1500","balanceDue":"2000"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/collections", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCollectionsRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubOrdersService{})
	body := `{"cardCode":"C0001","method":"cash","amount":"1500","account":"CTA01","invoices":[{"docEntry":77,"sumApplied":"1500","balanceDue":"2000"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/collections", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	req.Header.Set("Idempotency-Key", "collect-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for collection got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data sap.IncomingPayment `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode payment: %v", err)
	}
	if envelope.Data.DocEntry != 3001 {
		t.Fatalf("unexpected payment: %+v", envelope.Data)
	}
}

func TestLoginThrottledAfterLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = config.AuthRateLimitConfig{
		LoginWindow:    time.Minute,
		LoginUserLimit: 2,
		LoginIPLimit:   2,
	}
	router := newTestRouter(cfg, &stubOrdersService{})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"userName":"rep7","password":"pw"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "10.0.0.9:4000"
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	for i := 0; i < 2; i++ {
		if resp := send(); resp.Code == http.StatusTooManyRequests {
			t.Fatalf("attempt %d throttled before the limit", i+1)
		}
	}
	third := send()
	if third.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 past the limit got %d: %s", third.Code, third.Body.String())
	}
}

func TestCatalogRoute(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubOrdersService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products?groupCode=3", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for catalog got %d: %s", resp.Code, resp.Body.String())
	}
}
