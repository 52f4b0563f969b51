package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/twmb/franz-go/pkg/kgo"

	"adjudicator/internal/disbursement"
	"adjudicator/internal/eligibility"
	"adjudicator/internal/evidence/documents"
	"adjudicator/internal/evidence/registry"
	"adjudicator/internal/evidence/sanctions"
	"adjudicator/internal/external"
	"adjudicator/internal/monitor"
	"adjudicator/internal/notify"
	"adjudicator/internal/notify/kafka"
	"adjudicator/internal/notify/rabbitmq"
	"adjudicator/internal/platform/config"
	"adjudicator/internal/platform/lock"
	"adjudicator/internal/platform/logger"
	"adjudicator/internal/platform/metrics"
	"adjudicator/internal/platform/postgres"
	platformredis "adjudicator/internal/platform/redis"
	"adjudicator/internal/policy"
	"adjudicator/internal/ratelimit"
	"adjudicator/internal/refund/pipeline"
	"adjudicator/internal/refund/store"
	"adjudicator/internal/screening"
	"adjudicator/pkg/calendar"
	id "adjudicator/pkg/domain"
	audit "adjudicator/pkg/platform/audit"
	"adjudicator/pkg/platform/audit/publishers/compliance"
	auditmemory "adjudicator/pkg/platform/audit/store/memory"
	auditpostgres "adjudicator/pkg/platform/audit/store/postgres"
	"adjudicator/pkg/platform/tx"
)

// Business days and SLA windows follow the Indian calendar.
const timezone = "Asia/Kolkata"

// app holds every wired component. Only what a command touches is started.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	metrics  *metrics.Registry
	cal      *calendar.Calendar
	screener *screening.Screener
	rules    *eligibility.Engine
	pipeline *pipeline.Service
	relay    *notify.Relay
	limits   ratelimit.Store
	ready    map[string]func(context.Context) error
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// loadConfig reads configuration and builds the logger.
func loadConfig() (config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	log, flush, err := logger.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	slog.SetDefault(log)
	return cfg, log, flush, nil
}

func newCalendar(cfg config.Pipeline) (*calendar.Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	holidays := make([]time.Time, 0, len(cfg.Holidays))
	for _, h := range cfg.Holidays {
		d, err := time.ParseInLocation(time.DateOnly, h, loc)
		if err != nil {
			return nil, fmt.Errorf("pipeline.holidays: %w", err)
		}
		holidays = append(holidays, d)
	}
	return calendar.New(loc, holidays...), nil
}

func retryPolicy(cfg config.Retry) external.Policy {
	return external.Policy{
		Attempts:        cfg.Attempts,
		Timeout:         cfg.Timeout,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
	}
}

// buildScreener wires the registry and sanctions list. It is shared by serve
// and the screen command.
func buildScreener(ctx context.Context, a *app, redisClient *platformredis.Client) error {
	cfg := a.cfg
	var source registry.Source = registry.NewInMemoryRegistry()
	if cfg.AWS.RegistryTable != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		source = registry.NewDynamoDBRegistry(dynamodb.NewFromConfig(awsCfg), cfg.AWS.RegistryTable)
	} else {
		a.logger.Warn("no registry table configured; every stakeholder will be unknown")
	}
	source = registry.NewResilient(source,
		external.NewClient("registry", retryPolicy(cfg.Retry), external.WithLogger(a.logger)))
	if redisClient != nil {
		source = registry.NewRedisCache(redisClient.Client, source, cfg.Redis.CacheTTL, a.logger,
			registry.NewMetrics(a.metrics))
	}

	list := sanctions.List{Version: "empty"}
	if cfg.Sanctions.ListPath != "" {
		var err error
		if list, err = sanctions.LoadFile(cfg.Sanctions.ListPath); err != nil {
			return err
		}
	} else {
		a.logger.Warn("no sanctions list configured; screening runs against an empty list")
	}
	provider := sanctions.NewProvider(list, cfg.Sanctions.Threshold)

	sc := screening.DefaultConfig()
	sc.HighValueCutoff = cfg.Pipeline.AMLHighValueCutoff
	a.screener = screening.New(source, provider,
		screening.WithConfig(sc),
		screening.WithLogger(a.logger),
		screening.WithMetrics(screening.NewMetrics(a.metrics)),
	)
	return nil
}

// buildApp wires the full pipeline from configuration. Collaborators without
// configuration fall back to in-memory implementations for local runs.
func buildApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log, metrics: metrics.New(), ready: map[string]func(context.Context) error{}}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	cal, err := newCalendar(cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	a.cal = cal

	// Persistence.
	var (
		refunds    pipeline.Store
		trail      audit.Store
		txRunner   tx.Runner = tx.NopRunner{}
		documentDB documents.Store
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.ready["postgres"] = db.PingContext
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		refunds, trail, txRunner = store.NewPostgres(db), auditpostgres.New(db), tx.SQLRunner{DB: db}
	} else {
		log.Warn("no database configured; requests are kept in memory")
		refunds, trail = store.NewInMemoryStore(), auditmemory.NewInMemoryStore()
	}

	// Redis backs the per-request lock, submission limits and the registry cache.
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	var locker lock.Locker = lock.NewMemory()
	a.limits = ratelimit.NewMemoryStore()
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		a.ready["redis"] = redisClient.Health
		locker = lock.NewRedis(redisClient.Client, cfg.Redis.LockTTL, log)
		a.limits = ratelimit.NewRedisStore(redisClient.Client)
	}

	documentDB = documents.NewInMemoryStore()
	if cfg.AWS.DocumentsBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		documentDB = documents.NewS3Store(s3.NewFromConfig(awsCfg), cfg.AWS.DocumentsBucket)
	}
	docs := documents.NewResilient(documentDB,
		external.NewClient("documents", retryPolicy(cfg.Retry), external.WithLogger(log)))

	if err := buildScreener(ctx, a, redisClient); err != nil {
		return nil, err
	}

	// Event surfaces.
	var (
		publisher notify.StatePublisher
		reporter  notify.ComplianceReporter
		operators notify.OperatorQueue
	)
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kafka.NewClient(cfg.Kafka.Brokers)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		a.ready["kafka"] = client.Ping
		if err := ensureTopics(ctx, client, cfg.Kafka); err != nil {
			return nil, err
		}
		p := kafka.NewPublisher(client, kafka.Topics{
			Public:       cfg.Kafka.PublicTopic,
			Confidential: cfg.Kafka.ConfidentialTopic,
		})
		a.relay = notify.NewRelay(p, notify.WithRelayLogger(log))
		publisher, reporter = a.relay, p
	} else {
		log.Warn("no kafka brokers configured; events are recorded in memory only")
	}
	if cfg.RabbitMQ.URL != "" {
		q, err := rabbitmq.Dial(cfg.RabbitMQ.URL, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, q.Close)
		operators = q
	}

	reviewers, err := reviewerIDs("pipeline.reviewers", cfg.Pipeline.Reviewers)
	if err != nil {
		return nil, err
	}
	approvers, err := reviewerIDs("pipeline.named_approvers", cfg.Pipeline.NamedApprovers)
	if err != nil {
		return nil, err
	}

	a.rules = eligibility.New(cal)
	dc := disbursement.DefaultConfig()
	dc.SLABusinessDays = cfg.Pipeline.DisbursementBusinessDays

	a.pipeline = pipeline.New(pipeline.Deps{
		Store: refunds,
		Audit: compliance.New(trail,
			compliance.WithLogger(log),
			compliance.WithMetrics(compliance.NewMetrics(a.metrics))),
		Documents: docs,
		Screener:  a.screener,
		Rules:     a.rules,
		Scheduler: disbursement.New(cal,
			disbursement.WithConfig(dc),
			disbursement.WithMetrics(disbursement.NewMetrics(a.metrics))),
		Policies: policy.Published(),
	},
		pipeline.WithConfig(pipeline.Config{
			HighValueThreshold: cfg.Pipeline.HighValueThreshold,
			SignOffThreshold:   cfg.Pipeline.SignOffThreshold,
			FrozenResume:       pipeline.ResumePolicy(cfg.Pipeline.FrozenResume),
			Reviewers:          reviewers,
			NamedApprovers:     approvers,
		}),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(pipeline.NewMetrics(a.metrics)),
		pipeline.WithTxRunner(txRunner),
		pipeline.WithLocker(locker),
		pipeline.WithNotifiers(publisher, reporter, operators),
	)

	ok = true
	return a, nil
}

func ensureTopics(ctx context.Context, client *kgo.Client, cfg config.Kafka) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return kafka.EnsureTopics(ctx, client, cfg.Partitions, cfg.Replicas, cfg.PublicTopic, cfg.ConfidentialTopic)
}

func reviewerIDs(key string, raw []string) ([]id.ReviewerID, error) {
	out := make([]id.ReviewerID, 0, len(raw))
	for _, r := range raw {
		rid, err := id.ParseReviewerID(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, rid)
	}
	return out, nil
}

func newMonitor(a *app) *monitor.Monitor {
	p := a.cfg.Pipeline
	return monitor.New(a.pipeline, a.cal,
		monitor.WithConfig(monitor.Config{
			StaleIntake:         5 * time.Minute,
			L2BusinessDays:      p.L2BusinessDays,
			L3BusinessDays:      p.L3BusinessDays,
			OuterLimitationDays: p.OuterLimitationDays,
			FrozenAlertAge:      p.FrozenAlertAge,
			MaxParks:            a.cfg.Retry.MaxParks,
			Concurrency:         p.Workers,
		}),
		monitor.WithLogger(a.logger),
		monitor.WithMetrics(monitor.NewMetrics(a.metrics)),
	)
}
