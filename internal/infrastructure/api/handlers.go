package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"shopify-tenant-sync/internal/application"
	"shopify-tenant-sync/internal/auth"
	"shopify-tenant-sync/internal/domain"

	"github.com/rs/zerolog"
)

const maxWebhookBody = 5 << 20

// SyncTrigger runs sync on demand
type SyncTrigger interface {
	RunSync(ctx context.Context) (*domain.SyncReport, error)
	SyncShop(ctx context.Context, shop string) (*domain.SyncReport, error)
}

// Installer runs the OAuth install handshake
type Installer interface {
	BeginInstall(ctx context.Context, shop string) (string, error)
	CompleteInstall(ctx context.Context, callback *url.URL) (string, error)
}

// WebhookIngester accepts raw webhook deliveries
type WebhookIngester interface {
	Ingest(ctx context.Context, d application.WebhookDelivery) (*domain.WebhookEvent, error)
}

// OwnerAccounts registers and logs in dashboard owners
type OwnerAccounts interface {
	Register(ctx context.Context, req application.RegisterRequest) (*application.Registration, error)
	Login(ctx context.Context, email, password string) (*application.LoginResult, error)
}

// Analytics answers dashboard queries
type Analytics interface {
	Summary(ctx context.Context, tenantID string) (*domain.AnalyticsSummary, error)
	OrdersByDate(ctx context.Context, tenantID string, days int) ([]domain.DailyOrderCount, error)
	TopCustomers(ctx context.Context, tenantID string, limit int) ([]domain.Customer, error)
	Dashboard(ctx context.Context, tenantID string) (*domain.DashboardCounts, error)
}

type handlers struct {
	sync      SyncTrigger
	installer Installer
	webhooks  WebhookIngester
	owners    OwnerAccounts
	analytics Analytics
	tenants   TenantLookup
	logger    zerolog.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) beginInstall(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.installer.BeginInstall(r.Context(), r.URL.Query().Get("shop"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// completeInstall answers failures with a plain page since the merchant's
// browser lands here, not an API client.
func (h *handlers) completeInstall(w http.ResponseWriter, r *http.Request) {
	redirect, err := h.installer.CompleteInstall(r.Context(), r.URL)
	if err != nil {
		kind := domain.KindOf(err)
		h.logger.Warn().Err(err).Str("shop", r.URL.Query().Get("shop")).Msg("Install callback failed")
		status := statusFor(kind)
		http.Error(w, fmt.Sprintf("Installation failed (%s). Please try installing the app again.", kind), status)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// webhook verifies the HMAC over the raw body before anything else and
// acknowledges every verified delivery with 200.
func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read webhook payload")
		writeError(w, h.logger, domain.ValidationError("read webhook", "failed to read request body"))
		return
	}

	_, err = h.webhooks.Ingest(r.Context(), application.WebhookDelivery{
		Topic:     r.Header.Get("X-Shopify-Topic"),
		Shop:      r.Header.Get("X-Shopify-Shop-Domain"),
		WebhookID: r.Header.Get("X-Shopify-Webhook-Id"),
		Signature: r.Header.Get("X-Shopify-Hmac-Sha256"),
		Payload:   payload,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// signup hands the claim from the post-install redirect to the sign-up form
func (h *handlers) signup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	shop := domain.NormalizeShopDomain(q.Get("shop"))
	claim := q.Get("claim")
	if claim == "" || !domain.ValidShopDomain(shop) {
		writeError(w, h.logger, domain.ValidationError("signup", "shop and claim are required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"shop": shop, "claimToken": claim})
}

type syncResponse struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Counts    domain.EntityCounts    `json:"counts"`
	Processed int                    `json:"processed"`
	Failed    []domain.TenantFailure `json:"failed"`
}

// triggerSync syncs the caller's own shop. Only admin tokens may name any
// ?shop= or, without one, run every installed shop.
func (h *handlers) triggerSync(w http.ResponseWriter, r *http.Request) {
	shop := domain.NormalizeShopDomain(r.URL.Query().Get("shop"))
	if p := auth.PrincipalFromContext(r.Context()); p == nil || !p.Admin {
		tenant, err := callerTenant(r, h.tenants)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		if shop != "" && shop != tenant.Domain {
			h.logger.Warn().Str("tenantId", tenant.ID).Str("shop", shop).Msg("Sync requested for a shop outside the caller's tenant")
			writeError(w, h.logger, domain.NewError(domain.KindNotFound, "sync", fmt.Errorf("shop %s not found", shop)))
			return
		}
		shop = tenant.Domain
	}

	var (
		report *domain.SyncReport
		err    error
	)
	if shop != "" {
		report, err = h.sync.SyncShop(r.Context(), shop)
	} else {
		report, err = h.sync.RunSync(r.Context())
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if shop != "" && len(report.Failed) == 1 && report.Failed[0].Kind == domain.KindSyncInProgress {
		writeError(w, h.logger, domain.NewError(domain.KindSyncInProgress, "sync", fmt.Errorf("a sync for %s is already running", shop)))
		return
	}

	message := "Sync completed"
	if !report.Success() {
		message = fmt.Sprintf("Sync completed with %d failed shop(s)", len(report.Failed))
	}
	writeJSON(w, http.StatusOK, syncResponse{
		Success:   report.Success(),
		Message:   message,
		Counts:    report.Counts,
		Processed: report.Processed,
		Failed:    report.Failed,
	})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	reg, err := h.owners.Register(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Account created",
		"ownerId": reg.OwnerID,
		"storeId": reg.TenantID,
	})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.owners.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"token":     res.Token,
		"expiresAt": res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	out, err := h.analytics.Summary(r.Context(), p.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) ordersByDate(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	days, err := intParam(r, "days")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out, err := h.analytics.OrdersByDate(r.Context(), p.TenantID, days)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) topCustomers(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out, err := h.analytics.TopCustomers(r.Context(), p.TenantID, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	out, err := h.analytics.Dashboard(r.Context(), p.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.ValidationError("parse "+name, "%s must be a non-negative integer", name)
	}
	return n, nil
}
