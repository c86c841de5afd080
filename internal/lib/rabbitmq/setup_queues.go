package rabbitmq

// ExchangeBilling обменник для событий биллинга.
const ExchangeBilling = "billing"

const (
	// QueuePremiumActivated очередь уведомлений об активации premium.
	QueuePremiumActivated = "billing.premium"
	// RoutingKeyPremiumActivated ключ маршрутизации события PremiumActivated.
	RoutingKeyPremiumActivated = "premium.activated"
)

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetBillingQueues возвращает очереди, которые должны существовать в обменнике ExchangeBilling.
func GetBillingQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueuePremiumActivated, RoutingKey: RoutingKeyPremiumActivated},
	}
}
