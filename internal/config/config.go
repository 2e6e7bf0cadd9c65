package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	Session   SessionConfig   `yaml:"session"`
	Cart      CartConfig      `yaml:"cart"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	Email     EmailConfig     `yaml:"email"`
	Storage   StorageConfig   `yaml:"storage"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Orders    OrdersConfig    `yaml:"orders"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	BaseURL     string   `yaml:"base_url"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DBConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type SessionConfig struct {
	CookieName string        `yaml:"cookie_name"`
	Secure     bool          `yaml:"secure"`
	TTL        time.Duration `yaml:"ttl"`
}

type CartConfig struct {
	CookieName string `yaml:"cookie_name"`
	Secret     string `yaml:"secret"`
}

type SMTPConfig struct {
	Host          string `yaml:"host"`
	Port          string `yaml:"port"`
	User          string `yaml:"user"`
	Pass          string `yaml:"pass"`
	TLSMode       string `yaml:"tls_mode"` // none|starttls|tls
	SkipVerifyTLS bool   `yaml:"skip_verify_tls"`
	From          string `yaml:"from"`
	FromName      string `yaml:"from_name"`
}

type EmailConfig struct {
	Driver        string `yaml:"driver"` // smtp|mailtrap|log
	MailtrapURL   string `yaml:"mailtrap_url"`
	MailtrapToken string `yaml:"mailtrap_token"`
}

type StorageConfig struct {
	Driver         string `yaml:"driver"` // local|s3
	LocalDir       string `yaml:"local_dir"`
	LocalURLPrefix string `yaml:"local_url_prefix"`
	S3Region       string `yaml:"s3_region"`
	S3Bucket       string `yaml:"s3_bucket"`
	S3Prefix       string `yaml:"s3_prefix"`
	S3PublicBase   string `yaml:"s3_public_base_url"`
}

type PaymentsConfig struct {
	Provider      string `yaml:"provider"` // mock|gateway
	KeyID         string `yaml:"key_id"`
	KeySecret     string `yaml:"key_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
	APIBaseURL    string `yaml:"api_base_url"`
	Currency      string `yaml:"currency"`
}

type OrdersConfig struct {
	PaymentTTL                 time.Duration `yaml:"payment_ttl"`
	ReaperInterval             time.Duration `yaml:"reaper_interval"`
	StandardShippingCents      int           `yaml:"standard_shipping_cents"`
	ExpressShippingCents       int           `yaml:"express_shipping_cents"`
	FreeShippingThresholdCents int           `yaml:"free_shipping_threshold_cents"`
}

type BootstrapConfig struct {
	SuperAdminEmail    string `yaml:"super_admin_email"`
	SuperAdminPassword string `yaml:"super_admin_password"`
	SuperAdminName     string `yaml:"super_admin_name"`
}

// Defaults returns the configuration used when neither YAML nor env set a value.
func Defaults() Config {
	return Config{
		Env:      "development",
		LogLevel: "info",
		HTTP: HTTPConfig{
			Addr:    ":8080",
			BaseURL: "http://localhost:5173",
		},
		DB: DBConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Session: SessionConfig{
			CookieName: "gdw_session",
			TTL:        30 * 24 * time.Hour,
		},
		Cart: CartConfig{CookieName: "gdw_cart"},
		SMTP: SMTPConfig{
			Host:     "localhost",
			Port:     "1025",
			TLSMode:  "none",
			From:     "no-reply@geethika.lk",
			FromName: "Geethika Digital World",
		},
		Email: EmailConfig{Driver: "log"},
		Storage: StorageConfig{
			Driver:         "local",
			LocalDir:       "./storage/uploads",
			LocalURLPrefix: "/uploads",
			S3Prefix:       "uploads",
		},
		Payments: PaymentsConfig{Provider: "mock", Currency: "LKR", APIBaseURL: "https://api.payment-gateway.lk"},
		Orders: OrdersConfig{
			PaymentTTL:                 30 * time.Minute,
			ReaperInterval:             time.Minute,
			StandardShippingCents:      35000,
			ExpressShippingCents:       75000,
			FreeShippingThresholdCents: 1000000,
		},
		Bootstrap: BootstrapConfig{SuperAdminName: "Super Admin"},
	}
}

// Load reads .env (if present), an optional YAML file named by
// GDW_CONFIG_FILE, then applies environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("GDW_CONFIG_FILE"); path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	setStr(&c.Env, "APP_ENV")
	setStr(&c.LogLevel, "LOG_LEVEL")

	setStr(&c.HTTP.Addr, "HTTP_ADDR")
	setStr(&c.HTTP.BaseURL, "APP_BASE_URL")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.HTTP.CORSOrigins = splitList(v)
	}

	setStr(&c.DB.DSN, "DB_DSN")
	setInt(&c.DB.MaxOpenConns, "DB_MAX_OPEN_CONNS")
	setInt(&c.DB.MaxIdleConns, "DB_MAX_IDLE_CONNS")
	setDuration(&c.DB.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME")

	setStr(&c.Session.CookieName, "SESSION_COOKIE_NAME")
	setBool(&c.Session.Secure, "SESSION_SECURE")
	setDuration(&c.Session.TTL, "SESSION_TTL")

	setStr(&c.Cart.CookieName, "CART_COOKIE_NAME")
	setStr(&c.Cart.Secret, "CART_COOKIE_SECRET")

	setStr(&c.SMTP.Host, "SMTP_HOST")
	setStr(&c.SMTP.Port, "SMTP_PORT")
	setStr(&c.SMTP.User, "SMTP_USER")
	setStr(&c.SMTP.Pass, "SMTP_PASS")
	setStr(&c.SMTP.TLSMode, "SMTP_TLS_MODE")
	setBool(&c.SMTP.SkipVerifyTLS, "SMTP_SKIP_VERIFY_TLS")
	setStr(&c.SMTP.From, "EMAIL_FROM")
	setStr(&c.SMTP.FromName, "EMAIL_FROM_NAME")

	setStr(&c.Email.Driver, "EMAIL_DRIVER")
	setStr(&c.Email.MailtrapURL, "MAILTRAP_API_URL")
	setStr(&c.Email.MailtrapToken, "MAILTRAP_API_TOKEN")

	setStr(&c.Storage.Driver, "STORAGE_DRIVER")
	setStr(&c.Storage.LocalDir, "LOCAL_UPLOAD_DIR")
	setStr(&c.Storage.LocalURLPrefix, "LOCAL_UPLOAD_URL_PREFIX")
	setStr(&c.Storage.S3Region, "S3_REGION")
	setStr(&c.Storage.S3Bucket, "S3_BUCKET")
	setStr(&c.Storage.S3Prefix, "S3_PREFIX")
	setStr(&c.Storage.S3PublicBase, "S3_PUBLIC_BASE_URL")

	setStr(&c.Payments.Provider, "PAYMENT_PROVIDER")
	setStr(&c.Payments.KeyID, "PAYMENT_KEY_ID")
	setStr(&c.Payments.KeySecret, "PAYMENT_KEY_SECRET")
	setStr(&c.Payments.WebhookSecret, "PAYMENT_WEBHOOK_SECRET")
	setStr(&c.Payments.Currency, "PAYMENT_CURRENCY")
	setStr(&c.Payments.APIBaseURL, "PAYMENT_API_BASE_URL")

	setDuration(&c.Orders.PaymentTTL, "ORDER_PAYMENT_TTL")
	setDuration(&c.Orders.ReaperInterval, "ORDER_REAPER_INTERVAL")
	setInt(&c.Orders.StandardShippingCents, "SHIPPING_STANDARD_CENTS")
	setInt(&c.Orders.ExpressShippingCents, "SHIPPING_EXPRESS_CENTS")
	setInt(&c.Orders.FreeShippingThresholdCents, "SHIPPING_FREE_THRESHOLD_CENTS")

	setStr(&c.Bootstrap.SuperAdminEmail, "SUPER_ADMIN_EMAIL")
	setStr(&c.Bootstrap.SuperAdminPassword, "SUPER_ADMIN_PASSWORD")
	setStr(&c.Bootstrap.SuperAdminName, "SUPER_ADMIN_NAME")
}

// Validate reports every missing required value at once.
func (c Config) Validate() error {
	var errs []error
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	if c.IsProduction() && len(c.Cart.Secret) < 32 {
		errs = append(errs, errors.New("CART_COOKIE_SECRET must be at least 32 bytes in production"))
	}
	switch c.Payments.Provider {
	case "mock":
		if c.IsProduction() {
			errs = append(errs, errors.New("PAYMENT_PROVIDER=mock is not allowed in production"))
		}
	case "gateway":
		if c.Payments.KeyID == "" || c.Payments.KeySecret == "" || c.Payments.WebhookSecret == "" {
			errs = append(errs, errors.New("PAYMENT_KEY_ID, PAYMENT_KEY_SECRET and PAYMENT_WEBHOOK_SECRET are required for the gateway provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PAYMENT_PROVIDER: %q", c.Payments.Provider))
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Region == "" || c.Storage.S3Bucket == "" || c.Storage.S3PublicBase == "" {
			errs = append(errs, errors.New("S3_REGION, S3_BUCKET and S3_PUBLIC_BASE_URL are required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER: %q", c.Storage.Driver))
	}
	switch c.Email.Driver {
	case "smtp", "log":
	case "mailtrap":
		if c.Email.MailtrapURL == "" || c.Email.MailtrapToken == "" {
			errs = append(errs, errors.New("MAILTRAP_API_URL and MAILTRAP_API_TOKEN are required for the mailtrap driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMAIL_DRIVER: %q", c.Email.Driver))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool { return strings.EqualFold(c.Env, "production") }

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
