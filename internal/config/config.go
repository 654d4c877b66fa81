package config

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"arcpay-merchant.db"`

	ArcPay ArcPay `envPrefix:"ARCPAY_"`
	Kafka  Kafka  `envPrefix:"KAFKA_"`
}

type ArcPay struct {
	BaseAPIURL    string `env:"BASE_API_URL" envDefault:"https://arcpay.online/api/v1/arcpay"`
	APIKey        string `env:"API_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Testnet       bool   `env:"TESTNET" envDefault:"false"`
}

type Kafka struct {
	// Brokers empty means outbound events are disabled (noop publisher).
	Brokers []string `env:"BROKERS"`
	Topic   string   `env:"TOPIC" envDefault:"order-events"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
