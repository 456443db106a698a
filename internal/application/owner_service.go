package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs owner tokens
type TokenIssuer interface {
	Issue(owner *domain.Owner) (string, time.Time, error)
}

// RegisterRequest is the payload of an owner sign-up. ClaimToken is the
// one-time claim handed out at the end of the install flow; StoreName is
// optional and must match the claimed shop when given.
type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	StoreName  string `json:"storeName"`
	ClaimToken string `json:"claimToken"`
}

// Registration is the result of a successful sign-up
type Registration struct {
	OwnerID  string
	TenantID string
}

// LoginResult carries a signed token for the owner
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Owner     *domain.Owner
}

// OwnerService registers dashboard owners and logs them in
type OwnerService struct {
	owners   ports.OwnerRepository
	tenants  ports.TenantRepository
	claims   ports.OAuthStateStore
	issuer   TokenIssuer
	hashCost int
	logger   zerolog.Logger
}

// NewOwnerService creates a new owner service
func NewOwnerService(owners ports.OwnerRepository, tenants ports.TenantRepository, claims ports.OAuthStateStore, issuer TokenIssuer, logger zerolog.Logger) *OwnerService {
	return &OwnerService{
		owners:   owners,
		tenants:  tenants,
		claims:   claims,
		issuer:   issuer,
		hashCost: bcrypt.DefaultCost,
		logger:   logger,
	}
}

// Register creates an owner for the shop named by a signup claim. Ownership
// is only granted through a claim, which proves the caller just completed the
// install handshake for that shop.
func (s *OwnerService) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	claim := strings.TrimSpace(req.ClaimToken)
	if email == "" || req.Password == "" || claim == "" {
		return nil, domain.ValidationError("register", "email, password and claimToken are required")
	}
	requested := domain.NormalizeShopDomain(req.StoreName)
	if requested != "" && !domain.ValidShopDomain(requested) {
		return nil, domain.ValidationError("register", "storeName %q is not a valid shop domain", req.StoreName)
	}

	existing, err := s.owners.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.NewError(domain.KindConflict, "register", errors.New("an account with this email already exists"))
	}

	shop, err := s.claims.Consume(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("failed to consume signup claim: %w", err)
	}
	if shop == "" || (requested != "" && requested != shop) {
		s.logger.Warn().Str("storeName", requested).Msg("Registration with an invalid signup claim")
		return nil, domain.NewError(domain.KindAuth, "register", errors.New("signup claim is invalid or expired"))
	}

	tenant, err := s.tenants.FindByDomain(ctx, shop)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.NewError(domain.KindNotFound, "register", fmt.Errorf("shop %s is not installed", shop))
	}
	owned, err := s.owners.CountByTenant(ctx, tenant.ID)
	if err != nil {
		return nil, err
	}
	if owned > 0 {
		return nil, domain.NewError(domain.KindConflict, "register", fmt.Errorf("shop %s already has an owner", shop))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	owner := &domain.Owner{Email: email, PasswordHash: string(hash), TenantID: tenant.ID}
	if err := s.owners.Create(ctx, owner); err != nil {
		return nil, err
	}

	s.logger.Info().Str("ownerId", owner.ID).Str("shop", shop).Msg("Owner registered")
	return &Registration{OwnerID: owner.ID, TenantID: tenant.ID}, nil
}

// Login checks the password and issues a token. Unknown emails and wrong
// passwords fail the same way.
func (s *OwnerService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	invalid := domain.NewError(domain.KindAuth, "login", errors.New("invalid credentials"))

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid
	}

	owner, err := s.owners.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug().Str("ownerId", owner.ID).Msg("Password mismatch")
		return nil, invalid
	}

	token, expires, err := s.issuer.Issue(owner)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expires, Owner: owner}, nil
}
