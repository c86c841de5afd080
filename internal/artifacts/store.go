package artifacts

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/audioia/internal/config"
)

// New выбирает реализацию хранилища по cfg.Driver.
func New(ctx context.Context, cfg config.Artifacts) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewFileStore(cfg.LocalPath)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("artifacts: unknown driver %q", cfg.Driver)
	}
}
