package sl

import (
	"log/slog"
	"os"
)

// Окружения, в которых включён debug-уровень.
const (
	envLocal = "local"
	envDev   = "dev"
)

// SetupLogger создаёт текстовый логгер в stdout. Для local и dev уровень debug, иначе info.
func SetupLogger(env string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: levelFor(env)}))
}

func levelFor(env string) slog.Level {
	switch env {
	case envLocal, envDev:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
