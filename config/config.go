package config

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/bookverse/borrowledger/identity"
	"github.com/bookverse/borrowledger/shell"
)

const (
	EnvPrefix = "BORROWLEDGER_"

	DriverSQLite = "sqlite"
	DriverPGX    = "pgx"
	DriverSQL    = "sql"
	DriverSQLX   = "sqlx"
)

var (
	ErrParsingEnvironment = errors.New("parsing the environment failed")
	ErrLoadingDotEnv      = errors.New("loading the .env file failed")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

type Config struct {
	APIBaseURL string        `env:"API_BASE_URL"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`

	Token              string `env:"TOKEN"`
	IdentityPublicKey  string `env:"IDENTITY_PUBLIC_KEY"`
	IdentityHMACSecret string `env:"IDENTITY_HMAC_SECRET"`
	IdentityIssuer     string `env:"IDENTITY_ISSUER"`

	JournalDriver      string `env:"JOURNAL_DRIVER" envDefault:"sqlite"`
	SQLitePath         string `env:"SQLITE_PATH" envDefault:"borrowledger.db"`
	PostgresDSN        string `env:"POSTGRES_DSN"`
	PostgresReplicaDSN string `env:"POSTGRES_REPLICA_DSN"`
	JournalTable       string `env:"JOURNAL_TABLE" envDefault:"ledger_events"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"` // collector base URL, e.g. http://localhost:4318

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"borrowledger.events"`

	BookCacheSize    int           `env:"BOOK_CACHE_SIZE" envDefault:"256"`
	BookCacheTTL     time.Duration `env:"BOOK_CACHE_TTL" envDefault:"30s"`
	UrgentWindowDays int           `env:"URGENT_WINDOW_DAYS" envDefault:"3"`
}

// Load reads the given .env files (".env" when none is given, a missing one is fine) into the
// process environment without overriding it, then parses the BORROWLEDGER_ variables.
func Load(dotEnvFiles ...string) (Config, error) {
	if len(dotEnvFiles) == 0 {
		dotEnvFiles = []string{".env"}
	}

	for _, file := range dotEnvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Join(ErrLoadingDotEnv, err)
		}
	}

	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	cfg := Config{}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Join(ErrParsingEnvironment, err)
	}

	return cfg, nil
}

// Validate checks what Parse cannot. The API URL is only needed by commands that talk to it.
func (c Config) Validate(needsAPI bool) error {
	var problems []error

	if needsAPI {
		if parsed, err := url.Parse(c.APIBaseURL); err != nil || parsed.Host == "" ||
			(parsed.Scheme != "http" && parsed.Scheme != "https") {

			problems = append(problems, fmt.Errorf("%sAPI_BASE_URL %q is not an http(s) URL", EnvPrefix, c.APIBaseURL))
		}
	}

	if !slices.Contains([]string{DriverSQLite, DriverPGX, DriverSQL, DriverSQLX}, c.JournalDriver) {
		problems = append(problems, fmt.Errorf("%sJOURNAL_DRIVER %q is unknown", EnvPrefix, c.JournalDriver))
	}

	if c.JournalDriver != DriverSQLite && c.PostgresDSN == "" {
		problems = append(problems, fmt.Errorf("%sPOSTGRES_DSN is required for driver %q", EnvPrefix, c.JournalDriver))
	}

	if c.OTelEnabled && c.OTelEndpoint == "" {
		problems = append(problems, fmt.Errorf("%sOTEL_ENDPOINT is required when tracing is enabled", EnvPrefix))
	}

	if c.APITimeout <= 0 {
		problems = append(problems, fmt.Errorf("%sAPI_TIMEOUT must be positive", EnvPrefix))
	}

	if c.UrgentWindowDays < 0 {
		problems = append(problems, fmt.Errorf("%sURGENT_WINDOW_DAYS must not be negative", EnvPrefix))
	}

	if _, err := c.publicKey(); err != nil {
		problems = append(problems, err)
	}

	if len(problems) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, problems...)...)
	}

	return nil
}

// Verifier builds the token verifier from the configured key material.
func (c Config) Verifier() (identity.Verifier, error) {
	key, err := c.publicKey()
	if err != nil {
		return identity.Verifier{}, err
	}

	verifier := identity.Verifier{Ed25519Key: key, Issuer: c.IdentityIssuer}
	if c.IdentityHMACSecret != "" {
		verifier.HMACSecret = []byte(c.IdentityHMACSecret)
	}

	return verifier, nil
}

func (c Config) publicKey() (ed25519.PublicKey, error) {
	if c.IdentityPublicKey == "" {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(c.IdentityPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%sIDENTITY_PUBLIC_KEY is not base64: %w", EnvPrefix, err)
	}

	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%sIDENTITY_PUBLIC_KEY must be %d bytes, got %d", EnvPrefix, ed25519.PublicKeySize, len(raw))
	}

	return ed25519.PublicKey(raw), nil
}

// Logger builds the process logger with the configured level and format.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	return shell.NewLogger(c.LogLevel, c.LogFormat, w)
}

// Tracing returns the OTLP endpoint, or "" when tracing is off.
func (c Config) Tracing() string {
	if !c.OTelEnabled {
		return ""
	}

	return c.OTelEndpoint
}
