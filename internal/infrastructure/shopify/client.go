package shopify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"shopify-tenant-sync/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

const pageSize = 250

// ClientOptions tunes provider API calls
type ClientOptions struct {
	APIVersion string
	Retries    int
}

type client struct {
	apiKey  string
	app     goshopify.App
	options ClientOptions
	logger  zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret string, opts ClientOptions, logger zerolog.Logger) ports.ShopifyClient {
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	return &client{
		apiKey: apiKey,
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		options: opts,
		logger:  logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	opts := []goshopify.Option{goshopify.WithRetry(c.options.Retries)}
	if c.options.APIVersion != "" {
		opts = append(opts, goshopify.WithVersion(c.options.APIVersion))
	}
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Authentication methods

func (c *client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	// Shopify expects scopes comma-separated with no spaces
	scopesStr := strings.Join(scopes, ",")

	authURL := fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		url.QueryEscape(c.apiKey),
		url.QueryEscape(scopesStr),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)

	c.logger.Debug().
		Str("shop", shop).
		Strs("scopes", scopes).
		Msg("Generated OAuth authorization URL")

	return authURL, nil
}

func (c *client) VerifyAuthorizationURL(u *url.URL) (bool, error) {
	return c.app.VerifyAuthorizationURL(u)
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	token, err := c.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}
	return token, nil
}

// Shop API

func (c *client) GetShop(ctx context.Context, shopDomain string, accessToken string) (*goshopify.Shop, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return shop, nil
}

// Resource listing. Each call follows the Link-header cursor until exhausted.

func (c *client) ListProducts(ctx context.Context, shopDomain string, accessToken string) ([]goshopify.Product, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}

	var all []goshopify.Product
	var opts interface{} = goshopify.ListOptions{Limit: pageSize}
	for {
		page, pagination, err := client.Product.ListWithPagination(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		all = append(all, page...)
		if pagination == nil || pagination.NextPageOptions == nil {
			break
		}
		opts = pagination.NextPageOptions
	}
	return all, nil
}

func (c *client) ListCustomers(ctx context.Context, shopDomain string, accessToken string) ([]goshopify.Customer, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}

	var all []goshopify.Customer
	var opts interface{} = goshopify.ListOptions{Limit: pageSize}
	for {
		page, pagination, err := client.Customer.ListWithPagination(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list customers: %w", err)
		}
		all = append(all, page...)
		if pagination == nil || pagination.NextPageOptions == nil {
			break
		}
		opts = pagination.NextPageOptions
	}
	return all, nil
}

// orderListOptions asks for orders in any status; the default excludes closed orders
type orderListOptions struct {
	Limit  int    `url:"limit,omitempty"`
	Status string `url:"status,omitempty"`
}

func (c *client) ListOrders(ctx context.Context, shopDomain string, accessToken string) ([]goshopify.Order, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}

	var all []goshopify.Order
	var opts interface{} = orderListOptions{Limit: pageSize, Status: "any"}
	for {
		page, pagination, err := client.Order.ListWithPagination(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list orders: %w", err)
		}
		all = append(all, page...)
		if pagination == nil || pagination.NextPageOptions == nil {
			break
		}
		// page_info cursors carry their own filters
		opts = pagination.NextPageOptions
	}
	return all, nil
}

// Webhook API

func (c *client) CreateWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) (*goshopify.Webhook, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	created, err := client.Webhook.Create(ctx, webhook)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	return created, nil
}
