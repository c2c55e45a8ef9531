// Package stripe реализует оплату бустов через Stripe Checkout.
// Подтверждение оплаты сводится к чтению статуса сессии и безопасно при повторах.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rajivgeraev/bonplan-api/internal/payment"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// Config параметры клиента Stripe
type Config struct {
	SecretKey string
	// APIURL переопределяет адрес API, пусто - боевой api.stripe.com
	APIURL     string
	SuccessURL string
	CancelURL  string

	CheckoutTimeout time.Duration
	ConfirmTimeout  time.Duration
}

// sessionAPI подмножество checkout/session.Client, которое нам нужно
type sessionAPI interface {
	New(params *stripego.CheckoutSessionParams) (*stripego.CheckoutSession, error)
	Get(id string, params *stripego.CheckoutSessionParams) (*stripego.CheckoutSession, error)
}

// Client клиент Stripe Checkout
type Client struct {
	cfg      Config
	sessions sessionAPI
}

var _ payment.Provider = (*Client)(nil)

// NewClient создает клиента Stripe
func NewClient(cfg Config) *Client {
	if cfg.CheckoutTimeout <= 0 {
		cfg.CheckoutTimeout = 8 * time.Second
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 8 * time.Second
	}

	backendCfg := &stripego.BackendConfig{
		HTTPClient: &http.Client{},
		// Повторы создания сессии безопасны, но решение о повторе принимает вызывающий
		MaxNetworkRetries: stripego.Int64(0),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripego.String(strings.TrimRight(cfg.APIURL, "/"))
	}

	return &Client{
		cfg: cfg,
		sessions: session.Client{
			B:   stripego.GetBackendWithConfig(stripego.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
	}
}

// Name возвращает имя провайдера
func (c *Client) Name() payment.ProviderName {
	return payment.ProviderStripe
}

// CreateCheckout создает Checkout Session с метаданными буста
func (c *Client) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CheckoutTimeout)
	defer cancel()

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "eur"
	}

	params := &stripego.CheckoutSessionParams{
		Mode: stripego.String(string(stripego.CheckoutSessionModePayment)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{
				PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
					Currency: stripego.String(currency),
					ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripego.String(req.ProductName),
						Description: stripego.String(req.Description),
					},
					UnitAmount: stripego.Int64(req.AmountCents),
				},
				Quantity: stripego.Int64(1),
			},
		},
		SuccessURL:        stripego.String(c.cfg.SuccessURL),
		CancelURL:         stripego.String(c.cfg.CancelURL),
		ClientReferenceID: stripego.String(req.Metadata.ListingID.String()),
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripego.String(req.CustomerEmail)
	}
	for k, v := range req.Metadata.Map() {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := c.sessions.New(params)
	if err != nil {
		return nil, mapError("создание сессии", err)
	}
	if s.URL == "" {
		return nil, fmt.Errorf("%w: Stripe не вернул URL сессии %s", payment.ErrProviderUnavailable, s.ID)
	}

	return &payment.Checkout{RedirectURL: s.URL, ProviderRef: s.ID}, nil
}

// Confirm читает статус сессии. Оплата завершена, только если payment_status == paid.
func (c *Client) Confirm(ctx context.Context, sessionID string) (*payment.Confirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConfirmTimeout)
	defer cancel()

	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx

	s, err := c.sessions.Get(sessionID, params)
	if err != nil {
		return nil, mapError("получение сессии", err)
	}

	return &payment.Confirmation{
		Completed: s.PaymentStatus == stripego.CheckoutSessionPaymentStatusPaid,
		Status:    string(s.PaymentStatus),
		Metadata:  s.Metadata,
	}, nil
}

func mapError(op string, err error) error {
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripego.ErrorCodeResourceMissing:
			return fmt.Errorf("%w: stripe %s: %v", payment.ErrCheckoutNotFound, op, err)
		case stripeErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: stripe %s: %v", payment.ErrProviderUnavailable, op, err)
		}
		return fmt.Errorf("stripe %s: %w", op, err)
	}
	return fmt.Errorf("%w: stripe %s: %v", payment.ErrProviderUnavailable, op, err)
}
