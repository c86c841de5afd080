package paymentprovider

// Статусы сессии оплаты.
const (
	SessionStatusOpen     = "open"
	SessionStatusComplete = "complete"
	SessionStatusExpired  = "expired"
)

// Статусы оплаты сессии.
const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// События сессии оплаты. При отложенных способах оплаты (SEPA и т.п.)
// checkout.session.completed приходит с payment_status=unpaid, а деньги
// подтверждаются позже событием checkout.session.async_payment_succeeded.
const (
	EventCheckoutCompleted             = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// CheckoutSession сессия оплаты у провайдера.
type CheckoutSession struct {
	ID                string
	URL               string
	Status            string
	PaymentStatus     string
	ClientReferenceID string
}

// Paid сессия завершена, и оплата получена или не требуется.
func (s *CheckoutSession) Paid() bool {
	if s.Status != SessionStatusComplete {
		return false
	}
	return s.PaymentStatus == PaymentStatusPaid || s.PaymentStatus == PaymentStatusNoPaymentRequired
}

// Event проверенное уведомление провайдера. Session заполнена для событий checkout.session.*.
type Event struct {
	ID      string
	Type    string
	Session *CheckoutSession
}
