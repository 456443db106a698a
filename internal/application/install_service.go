package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/ports"

	"github.com/rs/zerolog"
)

const (
	oauthStateTTL  = 10 * time.Minute
	signupClaimTTL = 24 * time.Hour
)

// InstallConfig carries the app settings the install flow needs
type InstallConfig struct {
	APIKey        string
	AppURL        string
	Scopes        []string
	WebhookTopics []string
}

// InstallService runs the OAuth install handshake and records the resulting
// session. The first install of a shop without an owner issues a one-time
// signup claim that OwnerService.Register requires.
type InstallService struct {
	provider ports.ShopifyClient
	states   ports.OAuthStateStore
	claims   ports.OAuthStateStore
	sessions *SessionReconciler
	owners   ports.OwnerRepository
	config   InstallConfig
	logger   zerolog.Logger
}

// NewInstallService creates a new install service. WebhookTopics defaults to
// domain.DefaultWebhookTopics.
func NewInstallService(
	provider ports.ShopifyClient,
	states ports.OAuthStateStore,
	claims ports.OAuthStateStore,
	sessions *SessionReconciler,
	owners ports.OwnerRepository,
	config InstallConfig,
	logger zerolog.Logger,
) *InstallService {
	config.AppURL = strings.TrimSuffix(config.AppURL, "/")
	if config.WebhookTopics == nil {
		config.WebhookTopics = domain.DefaultWebhookTopics
	}
	return &InstallService{
		provider: provider,
		states:   states,
		claims:   claims,
		sessions: sessions,
		owners:   owners,
		config:   config,
		logger:   logger,
	}
}

// BeginInstall returns the provider authorization URL for shop
func (s *InstallService) BeginInstall(ctx context.Context, shop string) (string, error) {
	shop = domain.NormalizeShopDomain(shop)
	if !domain.ValidShopDomain(shop) {
		return "", domain.ValidationError("begin install", "invalid shop domain %q", shop)
	}

	state, err := newState()
	if err != nil {
		return "", err
	}
	if err := s.states.Save(ctx, state, shop, oauthStateTTL); err != nil {
		return "", fmt.Errorf("failed to save oauth state: %w", err)
	}

	redirectURI := s.config.AppURL + "/auth/callback"
	authURL, err := s.provider.GenerateAuthURL(shop, s.config.Scopes, redirectURI, state)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to generate auth URL")
		return "", fmt.Errorf("failed to generate auth URL: %w", err)
	}

	s.logger.Info().Str("shop", shop).Strs("scopes", s.config.Scopes).Msg("Generated OAuth authorization URL")
	return authURL, nil
}

// CompleteInstall handles the provider callback and returns the URL to send
// the merchant to: the signup page carrying a claim when the shop has no
// owner yet, the embedded app otherwise.
func (s *InstallService) CompleteInstall(ctx context.Context, callback *url.URL) (string, error) {
	q := callback.Query()
	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		return "", domain.ValidationError("complete install", "callback requires code and state")
	}

	raw := domain.RawSession{"shop": q.Get("shop"), "scope": q.Get("scope")}
	if q.Get("scope") == "" {
		raw["scope"] = strings.Join(s.config.Scopes, ",")
	}
	requested, err := domain.NormalizeSession(raw)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", q.Get("shop")).Msg("OAuth callback carried a malformed session")
		return "", err
	}
	shop := requested.Shop

	ok, err := s.provider.VerifyAuthorizationURL(callback)
	if err != nil || !ok {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("OAuth callback failed HMAC verification")
		return "", domain.NewError(domain.KindSignature, "complete install", errors.New("callback signature mismatch"))
	}

	boundShop, err := s.states.Consume(ctx, state)
	if err != nil {
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	if boundShop == "" || boundShop != shop {
		return "", domain.NewError(domain.KindAuth, "complete install", errors.New("unknown or expired oauth state"))
	}

	accessToken, err := s.provider.ExchangeToken(ctx, shop, code)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		return "", domain.ProviderAPIError("exchange token", err)
	}
	raw["accessToken"] = accessToken

	if info, err := s.provider.GetShop(ctx, shop, accessToken); err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to fetch shop info, continuing without name")
	} else if info != nil {
		raw["shopName"] = info.Name
	}

	tenant, err := s.sessions.StoreSession(ctx, raw)
	if err != nil {
		return "", err
	}

	s.registerWebhooks(ctx, shop, accessToken)

	s.logger.Info().Str("shop", shop).Str("tenantId", tenant.ID).Msg("App installed")
	return s.landingURL(ctx, tenant), nil
}

// landingURL issues a signup claim for a tenant nobody owns yet. Claim
// failures fall back to the embedded app; reinstalling retries.
func (s *InstallService) landingURL(ctx context.Context, tenant *domain.Tenant) string {
	appURL := fmt.Sprintf("https://%s/admin/apps/%s", tenant.Domain, s.config.APIKey)

	owners, err := s.owners.CountByTenant(ctx, tenant.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", tenant.Domain).Msg("Failed to count owners, skipping signup claim")
		return appURL
	}
	if owners > 0 {
		return appURL
	}

	claim, err := newState()
	if err == nil {
		err = s.claims.Save(ctx, claim, tenant.Domain, signupClaimTTL)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", tenant.Domain).Msg("Failed to issue signup claim")
		return appURL
	}

	q := url.Values{}
	q.Set("shop", tenant.Domain)
	q.Set("claim", claim)
	return s.config.AppURL + "/signup?" + q.Encode()
}

// registerWebhooks subscribes the shop to the configured topics. Failures
// are logged; the install still succeeds.
func (s *InstallService) registerWebhooks(ctx context.Context, shop, accessToken string) {
	address := s.config.AppURL + "/webhooks/shopify"
	for _, topic := range s.config.WebhookTopics {
		if _, err := s.provider.CreateWebhook(ctx, shop, accessToken, topic, address); err != nil {
			s.logger.Warn().Err(err).Str("shop", shop).Str("topic", topic).Msg("Failed to register webhook")
			continue
		}
		s.logger.Debug().Str("shop", shop).Str("topic", topic).Msg("Webhook registered")
	}
}

func newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
