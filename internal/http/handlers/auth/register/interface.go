package register

import (
	"context"

	"github.com/magabrotheeeer/audioia/internal/models"
)

// Service регистрирует учётные записи.
type Service interface {
	Register(ctx context.Context, email, password string) (*models.Account, error)
}
