// Package app wires the analysis pipeline from configuration. Both services build
// it the same way; only the outer transport differs.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/resume-analyzer/internal/analysis"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/activity"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/ai"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/broadcast"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/quota"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/ratelimit"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/resume"
	"github.com/cuongbtq/resume-analyzer/internal/analysis/storage"
	"github.com/cuongbtq/resume-analyzer/internal/config"
	"github.com/cuongbtq/resume-analyzer/shared/objectstore"
	"github.com/cuongbtq/resume-analyzer/shared/postgresql"
	"github.com/cuongbtq/resume-analyzer/shared/rabbitmq"
	sharedredis "github.com/cuongbtq/resume-analyzer/shared/redis"
	goredis "github.com/redis/go-redis/v9"
)

// Pipeline owns the analysis service and the backend clients behind it
type Pipeline struct {
	Service *analysis.Service

	DB          *postgresql.Client
	Redis       *goredis.Client
	ObjectStore *objectstore.Client
}

// NewPipeline connects every backend and assembles the analysis service.
// Clients opened before a failure are closed again.
func NewPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Pipeline, err error) {
	p := &Pipeline{}
	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	p.DB, err = postgresql.NewClient(ctx, PostgreSQLConfig(&cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	p.Redis, err = sharedredis.NewClient(ctx, &sharedredis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	p.ObjectStore, err = objectstore.NewClient(ctx, &objectstore.Config{
		Endpoint:        cfg.ObjectStore.Endpoint,
		AccessKeyID:     cfg.ObjectStore.AccessKeyID,
		SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
		Bucket:          cfg.ObjectStore.Bucket,
		Region:          cfg.ObjectStore.Region,
		UseSSL:          cfg.ObjectStore.UseSSL,
		BucketLookup:    cfg.ObjectStore.BucketLookup,
		MaxObjectBytes:  cfg.ObjectStore.MaxObjectBytes,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}

	inferencer, err := ai.NewGeminiInferencer(ctx, ai.GeminiConfig{
		APIKey:          cfg.AI.APIKey,
		Model:           cfg.AI.Model,
		Temperature:     cfg.AI.Temperature,
		MaxOutputTokens: cfg.AI.MaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI provider: %w", err)
	}
	logger.Info("AI provider initialized", slog.String("model", inferencer.Model()))

	limiter, err := ratelimit.New(ratelimit.Config{
		Backend: cfg.RateLimit.Backend,
		Limit:   cfg.RateLimit.Limit,
		Window:  cfg.RateLimit.Window,
	}, p.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	store := storage.NewStorage(p.DB.DB(), logger)

	p.Service = analysis.NewService(analysis.Dependencies{
		Store:   store,
		Quota:   quota.NewGuard(store),
		Limiter: limiter,
		Resumes: resume.NewFetcher(p.ObjectStore, p.ObjectStore.Bucket()),
		Analyzer: ai.NewClient(inferencer, ai.Config{
			MaxAttempts:     cfg.AI.MaxAttempts,
			BaseBackoff:     cfg.AI.BaseBackoff,
			MaxJobTextRunes: cfg.AI.MaxJobTextRunes,
		}, logger),
		Broadcaster: broadcast.NewRedisBroadcaster(p.Redis),
		Activity:    activity.NewLogger(store),
	}, analysis.Config{
		BulkConcurrency:   cfg.Analysis.BulkConcurrency,
		SideEffectTimeout: cfg.Analysis.SideEffectTimeout,
	}, logger)

	return p, nil
}

// HealthChecks returns one readiness check per backend
func (p *Pipeline) HealthChecks() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		"database":     p.DB.HealthCheck,
		"redis":        func(ctx context.Context) error { return p.Redis.Ping(ctx).Err() },
		"object_store": p.ObjectStore.HealthCheck,
	}
}

// Close releases every backend client that was opened
func (p *Pipeline) Close() error {
	var errs []error
	if p.DB != nil {
		errs = append(errs, p.DB.Close())
	}
	if p.Redis != nil {
		errs = append(errs, p.Redis.Close())
	}
	return errors.Join(errs...)
}

// PostgreSQLConfig maps the database section onto the client config
func PostgreSQLConfig(cfg *config.DatabaseConfig) *postgresql.Config {
	return &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

// RabbitMQConfig maps the rabbitmq section onto the client config
func RabbitMQConfig(cfg *config.RabbitMQConfig) *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
		PrefetchCount:      cfg.Consumer.PrefetchCount,
	}
}
