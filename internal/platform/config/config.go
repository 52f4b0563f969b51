// Package config loads service configuration from the environment, an optional
// .env file and an optional YAML config file. Environment variables use the
// ADJ_ prefix with dots replaced by underscores (server.addr -> ADJ_SERVER_ADDR).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	strutil "adjudicator/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	RegulatedMode bool
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// Log selects the zap encoder and level.
type Log struct {
	Level  string
	Format string
}

type Database struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is empty when the lock and registry cache run in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	LockTTL      time.Duration
	CacheTTL     time.Duration
}

type Kafka struct {
	Brokers           []string
	PublicTopic       string
	ConfidentialTopic string
	Partitions        int32
	Replicas          int16
}

type RabbitMQ struct {
	URL string
}

type AWS struct {
	Region          string
	DocumentsBucket string
	RegistryTable   string
}

type Sanctions struct {
	ListPath  string
	Threshold float64
}

type Telemetry struct {
	OTLPEndpoint string
	ServiceName  string
}

// Retry bounds calls to the registry, document store and sanctions list.
type Retry struct {
	Attempts        int
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxParks is how many times the monitor retries a parked request before
	// leaving it to the operator queue.
	MaxParks int
}

// Pipeline holds the adjudication policy knobs.
type Pipeline struct {
	HighValueThreshold decimal.Decimal
	SignOffThreshold   decimal.Decimal
	AMLHighValueCutoff decimal.Decimal

	AckBusinessDays          int
	L1BusinessDays           int
	L2BusinessDays           int
	L3BusinessDays           int
	DisbursementBusinessDays int
	OuterLimitationDays      int
	FrozenAlertAge           time.Duration

	FrozenResume string
	Workers      int

	Reviewers      []string
	NamedApprovers []string
	Holidays       []string
}

type Monitor struct {
	Schedule string
}

// RateLimit bounds submissions per stakeholder. Zero disables the limit.
type RateLimit struct {
	Submissions int
	Window      time.Duration
}

// Config is the full service configuration.
type Config struct {
	Server    Server
	Log       Log
	Database  Database
	Redis     RedisConfig
	Kafka     Kafka
	RabbitMQ  RabbitMQ
	AWS       AWS
	Sanctions Sanctions
	Telemetry Telemetry
	Retry     Retry
	Pipeline  Pipeline
	Monitor   Monitor
	RateLimit RateLimit
}

// FrozenResume policies.
const (
	ResumePrior     = "resume_prior"
	ResumeRestartL1 = "restart_l1"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.regulated_mode", true)
	v.SetDefault("server.jwt_signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("server.jwt_issuer", "adjudicator")
	v.SetDefault("server.jwt_audience", "adjudicator-api")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.lock_ttl", 30*time.Second)
	v.SetDefault("redis.cache_ttl", 5*time.Minute)

	v.SetDefault("kafka.public_topic", "refund.status.v1")
	v.SetDefault("kafka.confidential_topic", "compliance.str.v1")
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replicas", 1)

	v.SetDefault("aws.region", "ap-south-1")

	v.SetDefault("sanctions.threshold", 0.85)

	v.SetDefault("telemetry.service_name", "adjudicator")

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.timeout", 2*time.Second)
	v.SetDefault("retry.initial_interval", 100*time.Millisecond)
	v.SetDefault("retry.max_interval", time.Second)
	v.SetDefault("retry.max_parks", 3)

	v.SetDefault("pipeline.high_value_threshold", "1000000")
	v.SetDefault("pipeline.signoff_threshold", "2500000")
	v.SetDefault("pipeline.aml_high_value_cutoff", "1000000")
	v.SetDefault("pipeline.ack_business_days", 2)
	v.SetDefault("pipeline.l1_business_days", 1)
	v.SetDefault("pipeline.l2_business_days", 5)
	v.SetDefault("pipeline.l3_business_days", 10)
	v.SetDefault("pipeline.disbursement_business_days", 7)
	v.SetDefault("pipeline.outer_limitation_days", 180)
	v.SetDefault("pipeline.frozen_alert_age", 30*24*time.Hour)
	v.SetDefault("pipeline.frozen_resume", ResumePrior)
	v.SetDefault("pipeline.workers", 4)

	v.SetDefault("monitor.schedule", "@every 15m")

	v.SetDefault("ratelimit.submissions", 10)
	v.SetDefault("ratelimit.window", time.Hour)
}

// Default returns the production defaults without reading the environment.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := build(v)
	if err != nil {
		// Defaults are constants; a failure here is a programming error.
		panic(err)
	}
	return cfg
}

// Load reads .env (if present), the environment and, when path is set, a YAML file.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ADJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return build(v)
}

func build(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:          v.GetString("server.addr"),
			RegulatedMode: v.GetBool("server.regulated_mode"),
			JWTSigningKey: v.GetString("server.jwt_signing_key"),
			JWTIssuer:     v.GetString("server.jwt_issuer"),
			JWTAudience:   v.GetString("server.jwt_audience"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Database: Database{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
			LockTTL:      v.GetDuration("redis.lock_ttl"),
			CacheTTL:     v.GetDuration("redis.cache_ttl"),
		},
		Kafka: Kafka{
			Brokers:           strutil.SplitList(v.GetString("kafka.brokers")),
			PublicTopic:       v.GetString("kafka.public_topic"),
			ConfidentialTopic: v.GetString("kafka.confidential_topic"),
			Partitions:        v.GetInt32("kafka.partitions"),
			Replicas:          int16(v.GetInt("kafka.replicas")),
		},
		RabbitMQ: RabbitMQ{URL: v.GetString("rabbitmq.url")},
		AWS: AWS{
			Region:          v.GetString("aws.region"),
			DocumentsBucket: v.GetString("aws.documents_bucket"),
			RegistryTable:   v.GetString("aws.registry_table"),
		},
		Sanctions: Sanctions{
			ListPath:  v.GetString("sanctions.list_path"),
			Threshold: v.GetFloat64("sanctions.threshold"),
		},
		Telemetry: Telemetry{
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
			ServiceName:  v.GetString("telemetry.service_name"),
		},
		Retry: Retry{
			Attempts:        v.GetInt("retry.attempts"),
			Timeout:         v.GetDuration("retry.timeout"),
			InitialInterval: v.GetDuration("retry.initial_interval"),
			MaxInterval:     v.GetDuration("retry.max_interval"),
			MaxParks:        v.GetInt("retry.max_parks"),
		},
		Pipeline: Pipeline{
			AckBusinessDays:          v.GetInt("pipeline.ack_business_days"),
			L1BusinessDays:           v.GetInt("pipeline.l1_business_days"),
			L2BusinessDays:           v.GetInt("pipeline.l2_business_days"),
			L3BusinessDays:           v.GetInt("pipeline.l3_business_days"),
			DisbursementBusinessDays: v.GetInt("pipeline.disbursement_business_days"),
			OuterLimitationDays:      v.GetInt("pipeline.outer_limitation_days"),
			FrozenAlertAge:           v.GetDuration("pipeline.frozen_alert_age"),
			FrozenResume:             v.GetString("pipeline.frozen_resume"),
			Workers:                  v.GetInt("pipeline.workers"),
			Reviewers:                strutil.SplitList(v.GetString("pipeline.reviewers")),
			NamedApprovers:           strutil.SplitList(v.GetString("pipeline.named_approvers")),
			Holidays:                 strutil.SplitList(v.GetString("pipeline.holidays")),
		},
		Monitor: Monitor{Schedule: v.GetString("monitor.schedule")},
		RateLimit: RateLimit{
			Submissions: v.GetInt("ratelimit.submissions"),
			Window:      v.GetDuration("ratelimit.window"),
		},
	}

	var err error
	if cfg.Pipeline.HighValueThreshold, err = decimalKey(v, "pipeline.high_value_threshold"); err != nil {
		return Config{}, err
	}
	if cfg.Pipeline.SignOffThreshold, err = decimalKey(v, "pipeline.signoff_threshold"); err != nil {
		return Config{}, err
	}
	if cfg.Pipeline.AMLHighValueCutoff, err = decimalKey(v, "pipeline.aml_high_value_cutoff"); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	switch c.Pipeline.FrozenResume {
	case ResumePrior, ResumeRestartL1:
	default:
		return fmt.Errorf("pipeline.frozen_resume must be %q or %q", ResumePrior, ResumeRestartL1)
	}
	if c.Pipeline.SignOffThreshold.LessThan(c.Pipeline.HighValueThreshold) {
		return errors.New("pipeline.signoff_threshold must not be below pipeline.high_value_threshold")
	}
	if c.Retry.Attempts < 1 {
		return errors.New("retry.attempts must be at least 1")
	}
	if c.RateLimit.Submissions > 0 && c.RateLimit.Window <= 0 {
		return errors.New("ratelimit.window must be positive")
	}
	if c.Pipeline.Workers < 1 {
		return errors.New("pipeline.workers must be at least 1")
	}
	return nil
}

func decimalKey(v *viper.Viper, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.GetString(key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
