package api_gateway_config

import (
	"time"

	"github.com/NordCoder/Gatehouse/internal/audit"
	"github.com/NordCoder/Gatehouse/internal/auth"
	"github.com/NordCoder/Gatehouse/internal/obs"
	"github.com/NordCoder/Gatehouse/internal/outbox"
	pg "github.com/NordCoder/Gatehouse/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DB struct {
	Driver            string        `mapstructure:"driver"`
	URL               string        `mapstructure:"url"`
	SQLitePath        string        `mapstructure:"sqlite_path"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

func (d *DB) AsPostgresConfig() pg.Config {
	return pg.Config{
		URL:               d.URL,
		MaxConns:          d.MaxConns,
		MinConns:          d.MinConns,
		MaxConnLifetime:   d.MaxConnLifetime,
		MaxConnIdleTime:   d.MaxConnIdleTime,
		HealthCheckPeriod: d.HealthCheckPeriod,
		QueryTimeout:      d.QueryTimeout,
	}
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// AsOTELConfig tags spans with the app version and environment.
func (c *Config) AsOTELConfig() *obs.OTELConfig {
	name := c.OTEL.ServiceName
	if name == "" {
		name = c.App.Name
	}
	return &obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.OTLPEndpoint,
		ServiceName: name,
		Version:     c.App.Version,
		Env:         c.App.Env,
		SampleRatio: c.OTEL.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Sentry struct {
	DSN string `mapstructure:"dsn"`
}

type Auth struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	AccessTTL        time.Duration `mapstructure:"access_ttl"`
	RefreshTTL       time.Duration `mapstructure:"refresh_ttl"`
	LockoutThreshold int           `mapstructure:"lockout_threshold"`
	BcryptCost       int           `mapstructure:"bcrypt_cost"`
}

type Password struct {
	MinLength      int    `mapstructure:"min_length"`
	MaxLength      int    `mapstructure:"max_length"`
	RequireUpper   bool   `mapstructure:"require_upper"`
	RequireLower   bool   `mapstructure:"require_lower"`
	RequireDigit   bool   `mapstructure:"require_digit"`
	RequireSpecial bool   `mapstructure:"require_special"`
	SpecialChars   string `mapstructure:"special_chars"`
}

func (p *Password) AsPolicy() auth.PasswordPolicy {
	return auth.PasswordPolicy{
		MinLength:      p.MinLength,
		MaxLength:      p.MaxLength,
		RequireUpper:   p.RequireUpper,
		RequireLower:   p.RequireLower,
		RequireDigit:   p.RequireDigit,
		RequireSpecial: p.RequireSpecial,
		SpecialChars:   p.SpecialChars,
	}
}

const (
	AuditWriterLog      = "log"
	AuditWriterPostgres = "postgres"
	AuditWriterSQLite   = "sqlite"
	AuditWriterRedis    = "redis"
)

type Audit struct {
	Writers      []string      `mapstructure:"writers"`
	BufferSize   int           `mapstructure:"buffer_size"`
	DropIfFull   bool          `mapstructure:"drop_if_full"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (a *Audit) AsDispatcherConfig() audit.Config {
	return audit.Config{
		BufferSize:   a.BufferSize,
		DropIfFull:   a.DropIfFull,
		WriteTimeout: a.WriteTimeout,
	}
}

type Kafka struct {
	Brokers    []string `mapstructure:"brokers"`
	AuditTopic string   `mapstructure:"audit_topic"`
}

type Outbox struct {
	Enable        bool          `mapstructure:"enable"`
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

func (o *Outbox) AsRunnerConfig() outbox.RunnerConfig {
	return outbox.RunnerConfig{
		Workers:       o.Workers,
		BatchSize:     o.BatchSize,
		WaitTime:      o.WaitTime,
		InProgressTTL: o.InProgressTTL,
	}
}

type Config struct {
	App      App               `mapstructure:"app"`
	Server   Server            `mapstructure:"server"`
	DB       DB                `mapstructure:"db"`
	OTEL     OTEL              `mapstructure:"otel"`
	Log      Log               `mapstructure:"log"`
	Sentry   Sentry            `mapstructure:"sentry"`
	Auth     Auth              `mapstructure:"auth"`
	Password Password          `mapstructure:"password"`
	Audit    Audit             `mapstructure:"audit"`
	Kafka    Kafka             `mapstructure:"kafka"`
	Redis    audit.RedisConfig `mapstructure:"redis"`
	Outbox   Outbox            `mapstructure:"outbox"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

func (c *Config) AsSentryConfig() obs.SentryConfig {
	return obs.SentryConfig{DSN: c.Sentry.DSN, Environment: c.App.Env, Release: c.App.Version}
}

func (c *Config) HasAuditWriter(name string) bool {
	for _, w := range c.Audit.Writers {
		if w == name {
			return true
		}
	}
	return false
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
