package domain

import (
	"errors"
	"strings"
)

// Session is a provider-issued credential for one shop. It is folded into the
// Tenant record on arrival and never stored on its own.
type Session struct {
	Shop        string   `json:"shop"`
	ShopName    string   `json:"shopName,omitempty"`
	AccessToken string   `json:"accessToken,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	IsOnline    bool     `json:"isOnline"`
}

// RawSession is a decoded session payload as delivered by the OAuth library or a caller
type RawSession map[string]any

var (
	shopKeys  = []string{"shop", "shopDomain", "shopifyDomain", "shop_domain"}
	tokenKeys = []string{"accessToken", "access_token"}
	nameKeys  = []string{"shopName", "shop_name", "name"}
)

// NormalizeSession maps every known payload shape onto Session. A payload
// without a resolvable shop domain is rejected with ErrMalformedSession.
func NormalizeSession(raw RawSession) (Session, error) {
	if raw == nil {
		return Session{}, NewError(KindMalformedSession, "normalize session", errors.New("session is empty"))
	}

	shop := NormalizeShopDomain(firstString(raw, shopKeys...))
	if shop == "" {
		return Session{}, NewError(KindMalformedSession, "normalize session", errors.New("missing shop domain"))
	}
	if !ValidShopDomain(shop) {
		return Session{}, NewError(KindMalformedSession, "normalize session", errors.New("invalid shop domain "+shop))
	}

	token := firstString(raw, tokenKeys...)
	if token == "" {
		if nested, ok := raw["session"].(map[string]any); ok {
			token = firstString(nested, tokenKeys...)
		}
	}

	return Session{
		Shop:        shop,
		ShopName:    strings.TrimSpace(firstString(raw, nameKeys...)),
		AccessToken: strings.TrimSpace(token),
		Scopes:      scopesOf(raw["scope"], raw["scopes"]),
		IsOnline:    boolOf(raw["isOnline"]) || boolOf(raw["is_online"]),
	}, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func scopesOf(values ...any) []string {
	for _, v := range values {
		switch s := v.(type) {
		case string:
			if s == "" {
				continue
			}
			parts := strings.Split(s, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		case []string:
			return s
		case []any:
			out := make([]string, 0, len(s))
			for _, item := range s {
				if str, ok := item.(string); ok && str != "" {
					out = append(out, str)
				}
			}
			return out
		}
	}
	return nil
}

func boolOf(v any) bool {
	b, _ := v.(bool)
	return b
}
