package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	GoEnv      string `env:"GO_ENV" envDefault:"development"` // dev/prod
	Port       string `env:"PORT" envDefault:"8080"`          // サーバーポート
	JWTSecret  string `env:"JWT_SECRET,required,notEmpty"`    // JWT署名シークレット
	FEURL      string `env:"FE_URL" envDefault:"http://localhost:3000"`
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080"` // webhook通知先の組み立てに使う
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// DATABASE_URLがあれば最優先
	DatabaseURL string   `env:"DATABASE_URL"`
	Postgres    Postgres `envPrefix:"POSTGRES_"`

	Shop     Shop     `envPrefix:"SHOP_"`
	Cashfree Cashfree `envPrefix:"CASHFREE_"`
	Razorpay Razorpay `envPrefix:"RAZORPAY_"`
	Mail     Mail     `envPrefix:"MAIL_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Kafka    Kafka    `envPrefix:"KAFKA_"`
}

type Postgres struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	DB       string `env:"DB" envDefault:"badgeshop"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// 店舗ルール（金額は全てルピー整数）
type Shop struct {
	DeliveryCharge        int64  `env:"DELIVERY_CHARGE" envDefault:"99"`
	Currency              string `env:"CURRENCY" envDefault:"INR"`
	DefaultEarningPerUnit int64  `env:"DEFAULT_EARNING_PER_UNIT" envDefault:"5"`
	MinWithdrawal         int64  `env:"MIN_WITHDRAWAL" envDefault:"100"`
	AdminEmail            string `env:"ADMIN_EMAIL"`
	DefaultGateway        string `env:"DEFAULT_GATEWAY" envDefault:"cashfree"`
}

type Cashfree struct {
	AppID      string `env:"APP_ID"`
	SecretKey  string `env:"SECRET_KEY"`
	BaseURL    string `env:"BASE_URL" envDefault:"https://sandbox.cashfree.com"`
	APIVersion string `env:"API_VERSION" envDefault:"2023-08-01"`
}

type Razorpay struct {
	KeyID         string `env:"KEY_ID"`
	KeySecret     string `env:"KEY_SECRET"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	BaseURL       string `env:"BASE_URL" envDefault:"https://api.razorpay.com"`
}

type Mail struct {
	APIURL string `env:"API_URL"`
	APIKey string `env:"API_KEY"`
	From   string `env:"FROM" envDefault:"orders@badgeshop.in"`
}

type Redis struct {
	URL string `env:"URL"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"badgeshop.orders"`
}

// Loadは.env（あれば）と環境変数から読み込む
func Load() (Config, error) {
	// .envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	//値の範囲チェック
	if cfg.Shop.DeliveryCharge < 0 {
		return Config{}, fmt.Errorf("SHOP_DELIVERY_CHARGE must be >= 0")
	}
	if cfg.Shop.DefaultEarningPerUnit < 0 {
		return Config{}, fmt.Errorf("SHOP_DEFAULT_EARNING_PER_UNIT must be >= 0")
	}
	if cfg.Shop.MinWithdrawal < 0 {
		return Config{}, fmt.Errorf("SHOP_MIN_WITHDRAWAL must be >= 0")
	}
	switch strings.ToLower(cfg.Shop.DefaultGateway) {
	case "cashfree", "razorpay":
		cfg.Shop.DefaultGateway = strings.ToLower(cfg.Shop.DefaultGateway)
	default:
		return Config{}, fmt.Errorf("SHOP_DEFAULT_GATEWAY must be cashfree or razorpay")
	}

	return cfg, nil
}

// postgresのDSN
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	p := c.Postgres
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DB, p.SSLMode,
	)
}

func (c Config) IsProduction() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}
