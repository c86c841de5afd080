// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	Session                 `yaml:"session"`
	Quota                   `yaml:"quota"`
	Upload                  `yaml:"upload"`
	OpenAI                  `yaml:"openai"`
	TTS                     `yaml:"tts"`
	Billing                 `yaml:"billing"`
	Artifacts               `yaml:"artifacts"`
	SMTP                    `yaml:"smtp"`
	RateLimit               `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"120s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	RedisAddress     string        `yaml:"addressredis"`
	RedisPassword    string        `yaml:"password" env:"REDIS_PASSWORD"`
	RedisUser        string        `yaml:"user"`
	RedisDB          int           `yaml:"db"`
	RedisMaxRetries  int           `yaml:"max_retries"`
	RedisDialTimeout time.Duration `yaml:"dial_timeout"`
	RedisTimeout     time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ настройки подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Session настройки сессий пользователя
type Session struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
	CookieName   string        `yaml:"cookie_name" env-default:"audioia_session"`
	CookieSecure bool          `yaml:"cookie_secure"`
}

// Quota лимиты бесплатного тарифа
type Quota struct {
	DailyLimit int           `yaml:"daily_limit" env-default:"2"`
	Window     time.Duration `yaml:"window" env-default:"24h"`
}

// Upload ограничения на загружаемые записи
type Upload struct {
	MaxBytes        int64  `yaml:"max_bytes" env-default:"67108864"`
	DefaultLanguage string `yaml:"default_language" env-default:"it"`
	DefaultTitle    string `yaml:"default_title" env-default:"Untitled"`
}

// OpenAI настройки клиента транскрибации и суммаризации
type OpenAI struct {
	OpenAIAPIKey       string        `yaml:"api_key" env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `yaml:"base_url" env-default:"https://api.openai.com/v1"`
	TranscriptionModel string        `yaml:"transcription_model" env-default:"whisper-1"`
	SummaryModel       string        `yaml:"summary_model" env-default:"gpt-4"`
	OpenAITimeout      time.Duration `yaml:"timeout" env-default:"90s"`
}

// TTS настройки синтеза речи
type TTS struct {
	TTSBaseURL string        `yaml:"base_url" env-default:"https://translate.google.com"`
	TTSTimeout time.Duration `yaml:"timeout" env-default:"30s"`
}

// Billing настройки платежного провайдера
type Billing struct {
	StripeSecretKey     string `yaml:"stripe_secret_key" env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `yaml:"stripe_webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	PublicURL           string `yaml:"public_url" env:"PUBLIC_URL" env-default:"http://localhost:8080"`
	Currency            string `yaml:"currency" env-default:"eur"`
	MonthlyAmount       int64  `yaml:"monthly_amount" env-default:"1000"`
	AnnualAmount        int64  `yaml:"annual_amount" env-default:"10000"`
	ProductName         string `yaml:"product_name" env-default:"Audio.ia Premium"`
}

// Artifacts настройки хранилища синтезированного аудио
type Artifacts struct {
	Driver        string `yaml:"driver" env-default:"local"`
	LocalPath     string `yaml:"local_path" env-default:"./protected_audio"`
	S3Bucket      string `yaml:"s3_bucket"`
	S3Region      string `yaml:"s3_region" env-default:"us-east-1"`
	S3EndpointURL string `yaml:"s3_endpoint_url"`
	S3AccessKey   string `yaml:"s3_access_key" env:"S3_ACCESS_KEY"`
	S3SecretKey   string `yaml:"s3_secret_key" env:"S3_SECRET_KEY"`
}

// SMTP настройки почтового сервера
type SMTP struct {
	SMTPHost string `yaml:"host"`
	SMTPPort string `yaml:"port" env-default:"587"`
	SMTPUser string `yaml:"user"`
	SMTPPass string `yaml:"password" env:"SMTP_PASSWORD"`
}

// RateLimit ограничение частоты запросов на аккаунт
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"1"`
	Burst int     `yaml:"burst" env-default:"3"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из config/config.go
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Redis: %s (db %d)\n"+
			"Quota: %d per %s\n"+
			"Upload: max %d bytes, default language %s\n"+
			"Artifacts: %s\n"+
			"Billing public URL: %s\n",
		c.Env,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RedisAddress,
		c.RedisDB,
		c.DailyLimit,
		c.Window,
		c.MaxBytes,
		c.DefaultLanguage,
		c.Driver,
		c.PublicURL,
	)
}
