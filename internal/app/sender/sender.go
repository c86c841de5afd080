// Package sender собирает сервис рассылки писем о переходе на premium.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/audioia/internal/config"
	"github.com/magabrotheeeer/audioia/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/audioia/internal/services/sender"
	"github.com/magabrotheeeer/audioia/internal/storage"
)

// App потребитель очереди billing.premium.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	db            *storage.Storage
	senderService *senderservice.Service
	logger        *slog.Logger
}

// New подключается к базе и брокеру и готовит SMTP-транспорт.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetBillingQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewService(db, transport, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		db:            db,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run обрабатывает сообщения до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	handler := func(body []byte) error {
		return a.senderService.SendPremiumActivated(ctx, body)
	}
	if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.QueuePremiumActivated, handler); err != nil {
		a.logger.Error("failed to start premium consumer", sl.Err(err))
		return err
	}
	a.logger.Info("consuming queue", slog.String("queue", rabbitmq.QueuePremiumActivated))

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
