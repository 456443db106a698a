package application

import (
	"context"
	"errors"
	"fmt"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/ports"

	"github.com/rs/zerolog"
)

// SessionReconciler folds provider sessions into tenant records and back
type SessionReconciler struct {
	tenants ports.TenantRepository
	sealer  ports.TokenSealer
	logger  zerolog.Logger
}

// NewSessionReconciler creates a reconciler. sealer may be nil, in which case
// tokens are stored as received.
func NewSessionReconciler(tenants ports.TenantRepository, sealer ports.TokenSealer, logger zerolog.Logger) *SessionReconciler {
	return &SessionReconciler{
		tenants: tenants,
		sealer:  sealer,
		logger:  logger,
	}
}

// StoreSession normalizes a raw session payload and persists it
func (r *SessionReconciler) StoreSession(ctx context.Context, raw domain.RawSession) (*domain.Tenant, error) {
	session, err := domain.NormalizeSession(raw)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Rejected malformed session")
		return nil, err
	}
	return r.Store(ctx, session, session.ShopName)
}

// Store persists an already normalized session. A session without a token
// only guarantees the tenant row exists and leaves any stored token alone.
func (r *SessionReconciler) Store(ctx context.Context, session domain.Session, displayName string) (*domain.Tenant, error) {
	shop := domain.NormalizeShopDomain(session.Shop)
	if !domain.ValidShopDomain(shop) {
		return nil, domain.NewError(domain.KindMalformedSession, "store session", errors.New("invalid shop domain"))
	}

	if session.AccessToken == "" {
		r.logger.Warn().Str("shop", shop).Msg("Session has no access token, keeping existing credentials")
		return r.tenants.EnsureTenant(ctx, shop)
	}

	token := session.AccessToken
	if r.sealer != nil {
		sealed, err := r.sealer.Seal(token)
		if err != nil {
			return nil, fmt.Errorf("failed to seal access token: %w", err)
		}
		token = sealed
	}

	tenant, err := r.tenants.UpsertTenant(ctx, shop, token, displayName)
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("shop", shop).
		Str("tenantId", tenant.ID).
		Strs("scopes", session.Scopes).
		Msg("Session stored")
	return tenant, nil
}

// LoadSession rebuilds the session for shop. It returns nil, nil when the
// shop is unknown or holds no token.
func (r *SessionReconciler) LoadSession(ctx context.Context, shop string) (*domain.Session, error) {
	tenant, err := r.tenants.FindByDomain(ctx, domain.NormalizeShopDomain(shop))
	if err != nil {
		return nil, err
	}
	return r.SessionFor(tenant)
}

// SessionFor rebuilds the session from a tenant row already in hand
func (r *SessionReconciler) SessionFor(tenant *domain.Tenant) (*domain.Session, error) {
	if tenant == nil || tenant.AccessToken == nil || *tenant.AccessToken == "" {
		return nil, nil
	}

	token := *tenant.AccessToken
	if r.sealer != nil {
		opened, err := r.sealer.Open(token)
		if err != nil {
			return nil, fmt.Errorf("failed to open access token for %s: %w", tenant.Domain, err)
		}
		token = opened
	}

	return &domain.Session{
		Shop:        tenant.Domain,
		AccessToken: token,
		IsOnline:    false,
	}, nil
}

// DeleteSession marks the shop uninstalled. Failures are logged and
// reported but never panic, so webhook acknowledgement is unaffected.
func (r *SessionReconciler) DeleteSession(ctx context.Context, shop string) error {
	shop = domain.NormalizeShopDomain(shop)
	if shop == "" {
		r.logger.Warn().Msg("Delete session called without a shop")
		return nil
	}

	if err := r.tenants.MarkUninstalled(ctx, shop); err != nil {
		r.logger.Error().Err(err).Str("shop", shop).Msg("Failed to mark shop uninstalled")
		return err
	}

	r.logger.Info().Str("shop", shop).Msg("Session deleted, shop marked uninstalled")
	return nil
}
