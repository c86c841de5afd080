package audioia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/audioia/internal/artifacts"
	"github.com/magabrotheeeer/audioia/internal/cache"
	"github.com/magabrotheeeer/audioia/internal/config"
	"github.com/magabrotheeeer/audioia/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/audioia/internal/http/middlewarectx"
	"github.com/magabrotheeeer/audioia/internal/lib/jwt"
	"github.com/magabrotheeeer/audioia/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/audioia/internal/lib/sl"
	"github.com/magabrotheeeer/audioia/internal/metrics"
	"github.com/magabrotheeeer/audioia/internal/migrations"
	"github.com/magabrotheeeer/audioia/internal/paymentprovider"
	"github.com/magabrotheeeer/audioia/internal/providers/openai"
	"github.com/magabrotheeeer/audioia/internal/providers/tts"
	authservice "github.com/magabrotheeeer/audioia/internal/services/auth"
	billingservice "github.com/magabrotheeeer/audioia/internal/services/billing"
	"github.com/magabrotheeeer/audioia/internal/services/quota"
	uploadservice "github.com/magabrotheeeer/audioia/internal/services/upload"
	"github.com/magabrotheeeer/audioia/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API сервиса.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New поднимает зависимости и собирает роутер. Брокер сообщений
// необязателен: без rabbitmq.url события о premium не публикуются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.audioia.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	store, err := artifacts.New(ctx, cfg.Artifacts)
	if err != nil {
		_ = db.Close()
		_ = cacheRedis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	var publisher billingservice.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			app.closeStores()
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetBillingQueues())
		if err != nil {
			_ = conn.Close()
			app.closeStores()
			return nil, err
		}
		app.conn, app.ch = conn, ch
		publisher = rabbitmq.NewPublisher(ch, rabbitmq.ExchangeBilling)
	} else {
		logger.Warn("rabbitmq url is empty, premium events will not be published")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	authService := authservice.NewService(db, cacheRedis, jwtMaker, logger)

	gate := quota.NewGate(db, quota.Policy{Limit: cfg.DailyLimit, Window: cfg.Window}, m, logger)
	openaiClient := openai.NewClient(cfg.OpenAI)
	uploadService := uploadservice.NewService(
		gate,
		openaiClient,
		openaiClient,
		tts.NewClient(cfg.TTS),
		store,
		m,
		uploadservice.Defaults{Title: cfg.DefaultTitle, Language: cfg.DefaultLanguage},
		logger,
	)

	billingService := billingservice.NewService(db, paymentprovider.NewClient(cfg.Billing), publisher, m, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:     authService,
		Upload:   uploadService,
		Audio:    store,
		Quota:    gate,
		Billing:  billingService,
		Health:   db.DB,
		Limiter:  middlewarectx.NewLimiter(cfg.RPS, cfg.Burst),
		Gatherer: registry,
		MaxBytes: cfg.MaxBytes,
		Cookie:   login.CookieConfig{Name: cfg.CookieName, Secure: cfg.CookieSecure},
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	a.closeStores()
}

func (a *App) closeStores() {
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
