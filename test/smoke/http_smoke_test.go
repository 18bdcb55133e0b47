package smoke

import (
	"net/http/httptest"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/clubops/memberbill/config"
	"github.com/clubops/memberbill/internal/api"
	"github.com/clubops/memberbill/internal/auth"
	"github.com/clubops/memberbill/internal/billing"
	"github.com/clubops/memberbill/internal/ledger"
	"github.com/clubops/memberbill/internal/processor"
	"github.com/clubops/memberbill/internal/registry"
	"github.com/clubops/memberbill/internal/scheduler"
	"github.com/clubops/memberbill/internal/webhook"
)

func TestHealthAndWebhookSmoke(t *testing.T) {
	lg := ledger.NewInMemoryStore()
	reg := registry.NewInMemoryStore()
	cfg := config.BillingConfig{WorkerCount: 1, RateLimit: 10, ProcessorTimeout: time.Second, Currency: "usd"}
	proc := processor.NewStripeClient(config.StripeConfig{})
	orch := scheduler.NewOrchestrator(
		billing.NewResolver(reg),
		billing.NewIssuer(proc, reg, cfg.Currency, cfg.ProcessorTimeout),
		lg, reg, cfg,
	)
	subs := scheduler.NewSubscriptionController(reg, proc, time.Second)
	router := webhook.NewRouter("whsec_smoke", nil, webhook.NewReconciler(lg))

	h := api.NewHandler(lg, reg, router, orch, subs, auth.NewVerifier(""), "dev", time.Now().Format(time.RFC3339), "git")
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/health", nil))
	if rec.Code != 200 {
		t.Fatalf("/v1/health %d", rec.Code)
	}

	// Unsigned webhook posts are rejected without side effects.
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, httptest.NewRequest("POST", "/v1/billing/webhook", nil))
	if rec2.Code != 400 {
		t.Fatalf("/v1/billing/webhook %d", rec2.Code)
	}

	// Admin routes are forbidden when no token hash is configured.
	rec3 := httptest.NewRecorder()
	r.ServeHTTP(rec3, httptest.NewRequest("POST", "/v1/admin/billing/run", nil))
	if rec3.Code != 403 {
		t.Fatalf("/v1/admin/billing/run %d", rec3.Code)
	}
}
