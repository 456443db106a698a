package ports

import (
	"context"
	"net/url"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the provider API operations the application needs
type ShopifyClient interface {
	// Authentication
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error)
	VerifyAuthorizationURL(u *url.URL) (bool, error)
	ExchangeToken(ctx context.Context, shop string, code string) (string, error)

	// Shop API
	GetShop(ctx context.Context, shop string, accessToken string) (*shopify.Shop, error)

	// Resources, fetched across all pages
	ListProducts(ctx context.Context, shop string, accessToken string) ([]shopify.Product, error)
	ListCustomers(ctx context.Context, shop string, accessToken string) ([]shopify.Customer, error)
	ListOrders(ctx context.Context, shop string, accessToken string) ([]shopify.Order, error)

	// Webhook API
	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) (*shopify.Webhook, error)
}
