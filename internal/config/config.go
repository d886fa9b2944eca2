package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultTokenExpiry   = 24 * time.Hour
	DefaultTokenIssuer   = "apex-protocol"
	DefaultTokenAudience = "apex-protocol-users"
	DefaultFrontendURL   = "http://localhost:3000"

	defaultPort            = "8080"
	defaultDSN             = "host=localhost user=postgres password=postgres dbname=apex_protocol sslmode=disable"
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
)

type Config struct {
	ServerAddr      string
	DatabaseDSN     string
	RunMigrations   bool
	SigningKey      []byte
	TokenExpiry     time.Duration
	TokenIssuer     string
	TokenAudience   string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration

	MembershipPasscode string
	AdminPasscode      string
	// GrantAdminRequireSelf makes grant-admin behave like join-club:
	// authentication is required and only the caller's own account may be
	// promoted. Off by default, matching the deployed behavior.
	GrantAdminRequireSelf bool

	LogLevel  string
	LogFormat string
}

// NewConfig builds a Config with the required connection settings and
// defaults for everything else. Passcodes must be set before Validate passes.
func NewConfig(serverAddr, databaseDSN, signingSecret string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if signingSecret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}

	return &Config{
		ServerAddr:      serverAddr,
		DatabaseDSN:     databaseDSN,
		RunMigrations:   true,
		SigningKey:      []byte(signingSecret),
		TokenExpiry:     DefaultTokenExpiry,
		TokenIssuer:     DefaultTokenIssuer,
		TokenAudience:   DefaultTokenAudience,
		AllowedOrigins:  normalizeOrigins(allowedOrigins),
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
	}, nil
}

func (c *Config) Validate() error {
	if c.MembershipPasscode == "" {
		return fmt.Errorf("membership passcode cannot be empty")
	}
	if c.AdminPasscode == "" {
		return fmt.Errorf("admin passcode cannot be empty")
	}
	if c.TokenExpiry <= 0 {
		return fmt.Errorf("token expiry must be positive, got %s", c.TokenExpiry)
	}
	if c.TokenIssuer == "" || c.TokenAudience == "" {
		return fmt.Errorf("token issuer and audience cannot be empty")
	}

	return nil
}

// Load reads the optional dotenv files into the process environment and then
// resolves every setting from the environment, falling back to defaults.
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

// DatabaseDSN resolves only the connection string, for tools that never
// serve requests.
func DatabaseDSN(envFiles ...string) (string, error) {
	if err := loadDotEnv(envFiles...); err != nil {
		return "", err
	}

	v := viper.New()
	v.SetDefault("DB_CONNECTION_STRING", defaultDSN)
	v.AutomaticEnv()

	return v.GetString("DB_CONNECTION_STRING"), nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("DB_CONNECTION_STRING", defaultDSN)
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("JWT_EXPIRES_IN", DefaultTokenExpiry)
	v.SetDefault("JWT_ISSUER", DefaultTokenIssuer)
	v.SetDefault("JWT_AUDIENCE", DefaultTokenAudience)
	v.SetDefault("FRONTEND_URL", "")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("MEMBERSHIP_PASSCODE", "")
	v.SetDefault("ADMIN_PASSCODE", "")
	v.SetDefault("GRANT_ADMIN_REQUIRE_SELF", false)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("LOG_FORMAT", defaultLogFormat)
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownTimeout)
}

func fromViper(v *viper.Viper) (*Config, error) {
	origins := []string{v.GetString("FRONTEND_URL")}
	origins = append(origins, strings.Split(v.GetString("ALLOWED_ORIGINS"), ",")...)

	cfg, err := NewConfig(
		":"+strings.TrimPrefix(v.GetString("PORT"), ":"),
		v.GetString("DB_CONNECTION_STRING"),
		v.GetString("JWT_SECRET"),
		origins,
	)
	if err != nil {
		return nil, err
	}

	cfg.RunMigrations = v.GetBool("RUN_MIGRATIONS")
	cfg.TokenExpiry = v.GetDuration("JWT_EXPIRES_IN")
	cfg.TokenIssuer = v.GetString("JWT_ISSUER")
	cfg.TokenAudience = v.GetString("JWT_AUDIENCE")
	cfg.MembershipPasscode = v.GetString("MEMBERSHIP_PASSCODE")
	cfg.AdminPasscode = v.GetString("ADMIN_PASSCODE")
	cfg.GrantAdminRequireSelf = v.GetBool("GRANT_ADMIN_REQUIRE_SELF")
	cfg.LogLevel = v.GetString("LOG_LEVEL")
	cfg.LogFormat = v.GetString("LOG_FORMAT")
	cfg.ShutdownTimeout = v.GetDuration("SHUTDOWN_TIMEOUT")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalizeOrigins trims trailing slashes, drops blanks and duplicates and
// always keeps the local frontend origin.
func normalizeOrigins(origins []string) []string {
	out := []string{DefaultFrontendURL}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || slices.Contains(out, o) {
			continue
		}
		out = append(out, o)
	}

	return out
}
