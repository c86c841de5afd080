// Package billing переводит аккаунты на premium по событиям платёжного
// провайдера и создаёт сессии оплаты.
//
// Оба способа подтверждения (вебхук и возврат пользователя со страницы оплаты)
// определяют аккаунт по client_reference_id сессии оплаты, который при
// создании сессии равен UID аккаунта.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/audioia/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/models"
	"github.com/magabrotheeeer/audioia/internal/paymentprovider"
	"github.com/magabrotheeeer/audioia/internal/storage"
)

// Триггеры перехода на premium.
const (
	TriggerWebhook  = "webhook"
	TriggerRedirect = "redirect"
)

var (
	// ErrInvalidSignature уведомление не прошло проверку подписи.
	ErrInvalidSignature = errors.New("billing notification verification failed")
	// ErrCheckoutIncomplete сессия оплаты не завершена.
	ErrCheckoutIncomplete = errors.New("checkout session is not complete")
	// ErrPaymentPending сессия завершена, но оплата ещё не получена.
	ErrPaymentPending = errors.New("checkout payment is pending")
	// ErrAccountMismatch сессия оплаты принадлежит другому аккаунту.
	ErrAccountMismatch = errors.New("checkout session belongs to another account")
	// ErrInvalidPlan неизвестный тарифный план.
	ErrInvalidPlan = errors.New("invalid plan")
)

// AccountStore хранилище аккаунтов.
type AccountStore interface {
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
	SetPremium(ctx context.Context, uid, trigger, reference string, now time.Time) (bool, error)
}

// Provider платёжный провайдер.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, accountUID, email string, plan models.Plan) (*paymentprovider.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*paymentprovider.CheckoutSession, error)
	ParseEvent(payload []byte, signature string) (*paymentprovider.Event, error)
}

// Publisher публикует события в брокер.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Observer получает факты перехода на premium.
type Observer interface {
	ObservePremium(trigger string)
}

// Service сервис биллинга.
type Service struct {
	accounts  AccountStore
	provider  Provider
	publisher Publisher
	observer  Observer
	log       *slog.Logger
	now       func() time.Time
}

// NewService создаёт Service. publisher и observer могут быть nil.
func NewService(accounts AccountStore, provider Provider, publisher Publisher, observer Observer, log *slog.Logger) *Service {
	return &Service{
		accounts:  accounts,
		provider:  provider,
		publisher: publisher,
		observer:  observer,
		log:       log,
		now:       time.Now,
	}
}

// ConfirmPremium переводит аккаунт на premium. Повторный вызов ничего не меняет.
// Возвращает true, если тариф изменился этим вызовом.
func (s *Service) ConfirmPremium(ctx context.Context, accountUID, trigger, reference string) (bool, error) {
	const op = "billing.ConfirmPremium"
	log := s.log.With(sl.Op(op), slog.String("account_uid", accountUID), slog.String("trigger", trigger))

	now := s.now().UTC()
	changed, err := s.accounts.SetPremium(ctx, accountUID, trigger, reference, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !changed {
		log.Debug("account already premium")
		return false, nil
	}

	log.Info("account upgraded to premium")
	if s.observer != nil {
		s.observer.ObservePremium(trigger)
	}
	s.publishActivated(ctx, log, accountUID, trigger, now)
	return true, nil
}

func (s *Service) publishActivated(ctx context.Context, log *slog.Logger, accountUID, trigger string, now time.Time) {
	if s.publisher == nil {
		return
	}
	event := models.PremiumActivated{AccountUID: accountUID, Trigger: trigger, ActivatedAt: now}
	if acc, err := s.accounts.GetAccount(ctx, accountUID); err == nil {
		event.Email = acc.Email
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingKeyPremiumActivated, event); err != nil {
		log.Error("failed to publish premium activation", sl.Err(err))
	}
}

// HandleNotification проверяет подпись уведомления провайдера и обрабатывает его.
//
// При неверной подписи возвращает ErrInvalidSignature и ничего не меняет.
// Premium выдаётся по checkout.session.completed с полученной оплатой и по
// checkout.session.async_payment_succeeded. Остальные события, а также события
// без ссылки на аккаунт или с неизвестным аккаунтом принимаются и игнорируются.
func (s *Service) HandleNotification(ctx context.Context, payload []byte, signature string) error {
	const op = "billing.HandleNotification"
	log := s.log.With(sl.Op(op))

	event, err := s.provider.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, paymentprovider.ErrInvalidSignature) {
			log.Warn("rejected billing notification", sl.Err(err))
			return fmt.Errorf("%s: %w", op, ErrInvalidSignature)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.String("event_id", event.ID), slog.String("event_type", event.Type))

	switch event.Type {
	case paymentprovider.EventCheckoutCompleted, paymentprovider.EventCheckoutAsyncPaymentSucceeded:
	default:
		log.Debug("ignoring billing event")
		return nil
	}
	if event.Session == nil || event.Session.ClientReferenceID == "" {
		log.Warn("checkout session without client reference, ignoring")
		return nil
	}
	log = log.With(slog.String("account_uid", event.Session.ClientReferenceID))
	if !event.Session.Paid() {
		log.Info("checkout completed, payment pending", slog.String("payment_status", event.Session.PaymentStatus))
		return nil
	}

	if _, err := s.ConfirmPremium(ctx, event.Session.ClientReferenceID, TriggerWebhook, event.Session.ID); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Warn("checkout session references unknown account, ignoring")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ConfirmRedirect подтверждает оплату при возврате пользователя со страницы провайдера.
// Сессия оплаты должна быть завершена, оплачена и принадлежать аккаунту текущей сессии.
func (s *Service) ConfirmRedirect(ctx context.Context, accountUID, checkoutSessionID string) error {
	const op = "billing.ConfirmRedirect"

	cs, err := s.provider.GetCheckoutSession(ctx, checkoutSessionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if cs.Status != paymentprovider.SessionStatusComplete {
		return fmt.Errorf("%s: %w", op, ErrCheckoutIncomplete)
	}
	if cs.ClientReferenceID != accountUID {
		return fmt.Errorf("%s: %w", op, ErrAccountMismatch)
	}
	if !cs.Paid() {
		return fmt.Errorf("%s: %w", op, ErrPaymentPending)
	}

	if _, err := s.ConfirmPremium(ctx, accountUID, TriggerRedirect, cs.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateCheckout создаёт сессию оплаты плана plan и возвращает ссылку на страницу оплаты.
func (s *Service) CreateCheckout(ctx context.Context, accountUID string, plan models.Plan) (string, error) {
	const op = "billing.CreateCheckout"

	if !plan.Valid() {
		return "", fmt.Errorf("%s: %w: %q", op, ErrInvalidPlan, plan)
	}
	acc, err := s.accounts.GetAccount(ctx, accountUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	cs, err := s.provider.CreateCheckoutSession(ctx, acc.UID, acc.Email, plan)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("checkout session created", sl.Op(op),
		slog.String("account_uid", acc.UID), slog.String("plan", string(plan)), slog.String("session_id", cs.ID))
	return cs.URL, nil
}
