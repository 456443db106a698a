package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"shopify-tenant-sync/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the tenant-scoping claims carried by an owner token. Operator
// tokens set Admin and may omit TenantID.
type Claims struct {
	TenantID string `json:"tenantId,omitempty"`
	OwnerID  string `json:"ownerId"`
	Email    string `json:"email,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the identity resolved from a valid bearer token
type Principal struct {
	TenantID string
	OwnerID  string
	Email    string
	Admin    bool
}

// Authenticator verifies HS256 owner tokens without touching storage
type Authenticator struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewAuthenticator creates an authenticator. issuer may be empty to skip the iss check.
func NewAuthenticator(secret string, issuer string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Authenticator{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}, nil
}

// Authenticate accepts "Bearer <jwt>" or a bare token and returns its principal
func (a *Authenticator) Authenticate(bearer string) (*Principal, error) {
	raw := strings.TrimSpace(bearer)
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" {
		return nil, domain.NewError(domain.KindAuth, "authenticate", errors.New("missing bearer token"))
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, domain.NewError(domain.KindAuth, "authenticate", err)
	}
	if !token.Valid {
		return nil, domain.NewError(domain.KindAuth, "authenticate", errors.New("invalid token"))
	}
	if claims.OwnerID == "" || (claims.TenantID == "" && !claims.Admin) {
		return nil, domain.NewError(domain.KindAuth, "authenticate", errors.New("token lacks tenant claims"))
	}

	return &Principal{TenantID: claims.TenantID, OwnerID: claims.OwnerID, Email: claims.Email, Admin: claims.Admin}, nil
}

// Issuer signs owner tokens after a successful login
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer; ttl defaults to one hour
func NewIssuer(secret string, issuer string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the owner
func (i *Issuer) Issue(owner *domain.Owner) (string, time.Time, error) {
	return i.sign(Claims{TenantID: owner.TenantID, OwnerID: owner.ID, Email: owner.Email})
}

// IssueAdmin signs an operator token that may trigger sync across all tenants
func (i *Issuer) IssueAdmin(operator string) (string, time.Time, error) {
	if strings.TrimSpace(operator) == "" {
		return "", time.Time{}, errors.New("operator name is required")
	}
	return i.sign(Claims{OwnerID: operator, Admin: true})
}

func (i *Issuer) sign(claims Claims) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   claims.OwnerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}
