// Package paymentprovider адаптирует Stripe Checkout под нужды биллинга:
// создание сессий оплаты, их получение и проверку подписи вебхуков.
package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/magabrotheeeer/audioia/internal/config"
	"github.com/magabrotheeeer/audioia/internal/models"
)

// ErrInvalidSignature подпись уведомления не прошла проверку.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Client клиент Stripe.
type Client struct {
	api           *client.API
	webhookSecret string
	cfg           config.Billing
}

// Option настраивает Client.
type Option func(*stripe.Backends)

// WithBackendURL направляет запросы к API на другой адрес (stripe-mock, тесты).
func WithBackendURL(url string) Option {
	return func(b *stripe.Backends) {
		backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL:               stripe.String(url),
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		})
		b.API = backend
		b.Connect = backend
		b.Uploads = backend
	}
}

// NewClient создаёт клиента Stripe.
func NewClient(cfg config.Billing, opts ...Option) *Client {
	var backends *stripe.Backends
	if len(opts) > 0 {
		backends = &stripe.Backends{}
		for _, opt := range opts {
			opt(backends)
		}
	}
	api := &client.API{}
	api.Init(cfg.StripeSecretKey, backends)
	return &Client{api: api, webhookSecret: cfg.StripeWebhookSecret, cfg: cfg}
}

func (c *Client) amount(plan models.Plan) (int64, string, error) {
	switch plan {
	case models.PlanMonthly:
		return c.cfg.MonthlyAmount, string(stripe.PriceRecurringIntervalMonth), nil
	case models.PlanAnnual:
		return c.cfg.AnnualAmount, string(stripe.PriceRecurringIntervalYear), nil
	default:
		return 0, "", fmt.Errorf("unknown plan %q", plan)
	}
}

// CreateCheckoutSession создаёт подписку plan для аккаунта. UID аккаунта передаётся в
// client_reference_id, по нему оплата потом сопоставляется с аккаунтом.
func (c *Client) CreateCheckoutSession(ctx context.Context, accountUID, email string, plan models.Plan) (*CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"

	amount, interval, err := c.amount(plan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	base := strings.TrimRight(c.cfg.PublicURL, "/")

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(accountUID),
		SuccessURL:        stripe.String(base + "/api/v1/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(base + "/api/v1/checkout/cancel"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(c.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(c.cfg.ProductName),
					},
					UnitAmount: stripe.Int64(amount),
					Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
						Interval: stripe.String(interval),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toSession(s), nil
}

// GetCheckoutSession получает сессию оплаты по идентификатору.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	const op = "paymentprovider.GetCheckoutSession"

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := c.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toSession(s), nil
}

// ParseEvent проверяет подпись уведомления и разбирает его.
// Ошибки проверки подписи оборачивают ErrInvalidSignature, ошибки разбора
// уже проверенного уведомления возвращаются без него.
func (c *Client) ParseEvent(payload []byte, signature string) (*Event, error) {
	const op = "paymentprovider.ParseEvent"

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") && event.Data != nil {
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("%s: decode checkout session: %w", op, err)
		}
		out.Session = toSession(&s)
	}
	return out, nil
}

func toSession(s *stripe.CheckoutSession) *CheckoutSession {
	return &CheckoutSession{
		ID:                s.ID,
		URL:               s.URL,
		Status:            string(s.Status),
		PaymentStatus:     string(s.PaymentStatus),
		ClientReferenceID: s.ClientReferenceID,
	}
}
