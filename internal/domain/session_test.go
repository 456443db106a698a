package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSession_FieldShapes(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawSession
		shop  string
		token string
	}{
		{
			name:  "shop and accessToken",
			raw:   RawSession{"shop": "a.myshop.com", "accessToken": "tok1"},
			shop:  "a.myshop.com",
			token: "tok1",
		},
		{
			name:  "shopDomain and access_token",
			raw:   RawSession{"shopDomain": "B.Myshop.com", "access_token": "tok2"},
			shop:  "b.myshop.com",
			token: "tok2",
		},
		{
			name:  "nested session token",
			raw:   RawSession{"shopifyDomain": "c.myshop.com", "session": map[string]any{"accessToken": "tok3"}},
			shop:  "c.myshop.com",
			token: "tok3",
		},
		{
			name:  "no token",
			raw:   RawSession{"shop": "https://d.myshop.com/admin"},
			shop:  "d.myshop.com",
			token: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NormalizeSession(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.shop, s.Shop)
			assert.Equal(t, tt.token, s.AccessToken)
		})
	}
}

func TestNormalizeSession_Scopes(t *testing.T) {
	s, err := NormalizeSession(RawSession{"shop": "a.myshop.com", "scope": "read_products, read_orders", "isOnline": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"read_products", "read_orders"}, s.Scopes)
	assert.True(t, s.IsOnline)

	s, err = NormalizeSession(RawSession{"shop": "a.myshop.com", "scopes": []any{"read_customers"}, "shopName": " Demo "})
	require.NoError(t, err)
	assert.Equal(t, []string{"read_customers"}, s.Scopes)
	assert.Equal(t, "Demo", s.ShopName)
}

func TestNormalizeSession_Malformed(t *testing.T) {
	for _, raw := range []RawSession{
		nil,
		{},
		{"accessToken": "tok"},
		{"shop": 42},
		{"shop": "not a domain"},
	} {
		_, err := NormalizeSession(raw)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedSession))
		assert.Equal(t, KindMalformedSession, KindOf(err))
	}
}

func TestParseLineItems(t *testing.T) {
	items, ok := ParseLineItems(`[{"product":"p1","quantity":2}]`)
	assert.True(t, ok)
	assert.Equal(t, []LineItem{{Product: "p1", Quantity: 2}}, items)

	items, ok = ParseLineItems("not json")
	assert.False(t, ok)
	assert.Empty(t, items)
	assert.NotNil(t, items)

	items, ok = ParseLineItems(`[{"product":"","quantity":1}]`)
	assert.False(t, ok)
	assert.Empty(t, items)

	items, ok = ParseLineItems(`[{"product":"p1","quantity":0}]`)
	assert.False(t, ok)
	assert.Empty(t, items)

	items, ok = ParseLineItems("")
	assert.True(t, ok)
	assert.Empty(t, items)
}

func TestErrorKinds(t *testing.T) {
	base := errors.New("connection refused")
	err := RepositoryError("find tenant", base)

	assert.True(t, errors.Is(err, ErrRepository))
	assert.False(t, errors.Is(err, ErrAuth))
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, KindRepository, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(base))
	assert.Equal(t, "repository: find tenant: connection refused", err.Error())
}
