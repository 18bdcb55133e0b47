package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	stripe "github.com/stripe/stripe-go/v76"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"

	"github.com/clubops/memberbill/config"
	"github.com/clubops/memberbill/internal/auth"
	"github.com/clubops/memberbill/internal/billing"
	"github.com/clubops/memberbill/internal/ledger"
	"github.com/clubops/memberbill/internal/models"
	"github.com/clubops/memberbill/internal/processor"
	"github.com/clubops/memberbill/internal/registry"
	"github.com/clubops/memberbill/internal/scheduler"
	"github.com/clubops/memberbill/internal/webhook"
)

const testWebhookSecret = "whsec_handler_test"

type stubProcessor struct{}

func (stubProcessor) CreateCustomer(ctx context.Context, p processor.CustomerParams) (string, error) {
	return "cus_stub", nil
}

func (stubProcessor) CreateCharge(ctx context.Context, p processor.ChargeParams) (processor.ChargeResult, error) {
	return processor.ChargeResult{CorrelationID: "pi_stub", Status: "requires_payment_method"}, nil
}

func (stubProcessor) GetSubscription(ctx context.Context, id string) (processor.SubscriptionState, error) {
	return processor.SubscriptionState{ID: id}, nil
}

func (stubProcessor) PauseSubscription(ctx context.Context, id string) error  { return nil }
func (stubProcessor) ResumeSubscription(ctx context.Context, id string) error { return nil }

type testEnv struct {
	mux        *chi.Mux
	ledger     *ledger.InMemoryStore
	registry   *registry.InMemoryStore
	adminToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	lg := ledger.NewInMemoryStore()
	reg := registry.NewInMemoryStore()

	rawToken, hash, err := auth.GenerateToken()
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.BillingConfig{
		WorkerCount:      2,
		RateLimit:        1000,
		ProcessorTimeout: time.Second,
		Currency:         "usd",
	}
	proc := stubProcessor{}
	orch := scheduler.NewOrchestrator(
		billing.NewResolver(reg),
		billing.NewIssuer(proc, reg, cfg.Currency, cfg.ProcessorTimeout),
		lg, reg, cfg,
	)
	subs := scheduler.NewSubscriptionController(reg, proc, time.Second)
	router := webhook.NewRouter(testWebhookSecret, nil, webhook.NewReconciler(lg))

	h := NewHandler(lg, reg, router, orch, subs, auth.NewVerifier(hash), "test", "", "")
	mux := chi.NewRouter()
	h.RegisterRoutes(mux)

	return &testEnv{mux: mux, ledger: lg, registry: reg, adminToken: rawToken}
}

func signPayload(payload []byte) string {
	now := time.Now()
	sig := stripewebhook.ComputeSignature(now, payload, testWebhookSecret)
	return fmt.Sprintf("t=%d,v1=%x", now.Unix(), sig)
}

func eventBody(id, eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":%q,"api_version":%q,"data":{"object":%s}}`,
		id, eventType, stripe.APIVersion, object))
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/v1/health", "/v1/health/ready", "/v1/health/live"} {
		rec := httptest.NewRecorder()
		env.mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestWebhookEndpointAcknowledgesEvent(t *testing.T) {
	env := newTestEnv(t)

	tx := models.Transaction{
		ClubID: "club-1", MemberID: "m1", Status: models.StatusPending,
		PaymentIntentID: "pi_1", Period: models.Period{Month: time.March, Year: 2026},
	}
	if err := env.ledger.Record(context.Background(), &tx); err != nil {
		t.Fatal(err)
	}

	payload := eventBody("evt_1", "payment_intent.succeeded", `{"id":"pi_1","amount_received":5000}`)
	req := httptest.NewRequest("POST", "/v1/billing/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signPayload(payload))

	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || !body["received"] {
		t.Errorf("Expected {\"received\":true}, got %s", rec.Body.String())
	}

	got, _ := env.ledger.Get(tx.ID)
	if got.Status != models.StatusPaid {
		t.Errorf("Expected ledger updated to paid, got %s", got.Status)
	}
}

func TestWebhookEndpointRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)

	payload := eventBody("evt_1", "payment_intent.succeeded", `{"id":"pi_1"}`)
	req := httptest.NewRequest("POST", "/v1/billing/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestAdminBillingRunRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/admin/billing/run", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}
}

func TestAdminBillingRunReturnsSummary(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/v1/admin/billing/run", nil)
	req.Header.Set("Authorization", "Bearer "+env.adminToken)

	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary scheduler.RunSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
}

func TestAdminSubscriptionSyncReturnsSummary(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/v1/admin/subscriptions/sync", nil)
	req.Header.Set("Authorization", "Bearer "+env.adminToken)

	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary scheduler.SyncSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
}

func TestWebhookEndpointAcceptsLargePayload(t *testing.T) {
	env := newTestEnv(t)

	// Invoice events with many line items run to hundreds of KB;
	// truncating them would break signature verification.
	padding := strings.Repeat("x", 200<<10)
	payload := eventBody("evt_big", "customer.created", fmt.Sprintf(`{"id":"cus_1","description":%q}`, padding))
	req := httptest.NewRequest("POST", "/v1/billing/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signPayload(payload))

	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for large signed payload, got %d: %s", rec.Code, rec.Body.String())
	}
}
