package domain

import (
	"strings"
	"time"
)

// Tenant represents one installed (or previously installed) store
type Tenant struct {
	ID          string    `json:"id"`
	Domain      string    `json:"domain"`
	Name        string    `json:"name"`
	AccessToken *string   `json:"-"`
	Uninstalled bool      `json:"uninstalled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Installed reports whether the tenant can be synced
func (t *Tenant) Installed() bool {
	return t != nil && !t.Uninstalled && t.AccessToken != nil && *t.AccessToken != ""
}

// NormalizeShopDomain lowercases and trims a shop domain, dropping any scheme or path
func NormalizeShopDomain(shop string) string {
	s := strings.TrimSpace(strings.ToLower(shop))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

// ValidShopDomain reports whether shop looks like a host name the provider could have issued
func ValidShopDomain(shop string) bool {
	if shop == "" || len(shop) > 255 || !strings.Contains(shop, ".") {
		return false
	}
	for _, r := range shop {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
		default:
			return false
		}
	}
	return !strings.HasPrefix(shop, ".") && !strings.HasSuffix(shop, ".")
}
