// Package sender отправляет письма о событиях биллинга.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/audioia/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/lib/smtp"
	"github.com/magabrotheeeer/audioia/internal/models"
)

// ErrNoRecipient у события нет адреса, и его не удалось найти.
var ErrNoRecipient = errors.New("no recipient for notification")

// AccountGetter читает аккаунт, если в событии нет email.
type AccountGetter interface {
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
}

// Service отправитель уведомлений.
type Service struct {
	accounts  AccountGetter
	transport smtp.Dialer
	log       *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(accounts AccountGetter, transport smtp.Dialer, log *slog.Logger) *Service {
	return &Service{
		accounts:  accounts,
		transport: transport,
		log:       log,
	}
}

// SendPremiumActivated обрабатывает сообщение models.PremiumActivated из очереди.
func (s *Service) SendPremiumActivated(ctx context.Context, body []byte) error {
	const op = "sender.SendPremiumActivated"
	log := s.log.With(sl.Op(op))

	var event models.PremiumActivated
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w: %w", op, rabbitmq.ErrDiscard, err)
	}

	email := event.Email
	if email == "" {
		acc, err := s.accounts.GetAccount(ctx, event.AccountUID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		email = acc.Email
	}
	if email == "" {
		return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrDiscard, ErrNoRecipient)
	}

	subject := "Audio.ia: il tuo abbonamento Premium è attivo"
	bodyText := "Ciao!\r\n\r\n" +
		"Il pagamento è andato a buon fine e il tuo account è ora Premium.\r\n" +
		"Da adesso puoi caricare note vocali senza limiti giornalieri.\r\n\r\n" +
		"Grazie per aver scelto Audio.ia."

	if err := s.sendEmail([]string{email}, subject, bodyText); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("premium notification sent", slog.String("account_uid", event.AccountUID))
	return nil
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.Sender()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from %s: %w", from, err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("rcpt to %s: %w", addr, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return client.Quit()
}
