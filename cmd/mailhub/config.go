package main

import "time"

// appConfig holds process-level settings. Connection settings for MongoDB,
// Redis and HTTP are loaded from their own packages' Config structs.
type appConfig struct {
	Name string `env:"APP_NAME" envDefault:"mailhub"`
	Env  string `env:"APP_ENV" envDefault:"development"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"` // memory or mongo
	CacheDriver string `env:"CACHE_DRIVER" envDefault:"memory"` // memory or redis

	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheSize          int           `env:"CACHE_SIZE" envDefault:"10000"`
	CachePruneInterval time.Duration `env:"CACHE_PRUNE_INTERVAL" envDefault:"1m"`

	MailTransport        string        `env:"MAIL_TRANSPORT" envDefault:"smtp"` // smtp or dev
	DevMailDir           string        `env:"DEV_MAIL_DIR" envDefault:"./tmp/emails"`
	TransporterCacheSize int           `env:"TRANSPORTER_CACHE_SIZE" envDefault:"256"`
	TransporterMaxAge    time.Duration `env:"TRANSPORTER_MAX_AGE" envDefault:"30m"`

	ClientIPHeaders []string `env:"CLIENT_IP_HEADERS" envSeparator:","`

	// SMTPSecretsKey encrypts SMTP passwords at rest in MongoDB. Hex or base64, 32 bytes.
	SMTPSecretsKey string `env:"SMTP_SECRETS_KEY"`
}
