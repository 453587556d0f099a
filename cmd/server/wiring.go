package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"idvgate/internal/platform/config"
	platformredis "idvgate/internal/platform/redis"
	profilestore "idvgate/internal/profile/store"
	"idvgate/internal/verification/models"
	"idvgate/internal/verification/state"
	"idvgate/pkg/platform/audit"
	kafkastore "idvgate/pkg/platform/audit/store/kafka"
	auditmemory "idvgate/pkg/platform/audit/store/memory"
)

const (
	auditBufferSize   = 1024
	auditPartitions   = 3
	auditReplication  = 1
	dependencyTimeout = 10 * time.Second
)

// profileStore is satisfied by both the Postgres and in-memory stores.
type profileStore interface {
	MergeVerification(ctx context.Context, subjectID string, update models.VerificationRecord) (*models.VerificationRecord, error)
	FindVerification(ctx context.Context, subjectID string) (*models.VerificationRecord, error)
}

type stateStore interface {
	Save(ctx context.Context, subjectID, token string, ttl time.Duration) error
	Consume(ctx context.Context, subjectID string) (string, error)
}

// healthCheck pings one backing dependency.
type healthCheck struct {
	name string
	ping func(ctx context.Context) error
}

// infra holds the backing stores picked from configuration.
type infra struct {
	db       *sql.DB
	redis    *platformredis.Client
	kafka    *kafkastore.Store
	profiles profileStore
	states   stateStore
	audit    audit.Store
	checks   []healthCheck
}

func openDB(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, dependencyTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// buildInfra picks Postgres, Redis and Kafka when configured and falls back
// to in-memory stores otherwise.
func buildInfra(ctx context.Context, cfg config.Server, logger *slog.Logger) (*infra, error) {
	in := &infra{}

	if cfg.Database.URL != "" {
		db, err := openDB(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		in.db = db
		in.profiles = profilestore.NewPostgres(db)
		in.checks = append(in.checks, healthCheck{name: "postgres", ping: db.PingContext})
		logger.Info("profile store: postgres")
	} else {
		in.profiles = profilestore.NewInMemoryStore()
		logger.Info("profile store: memory")
	}

	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		in.Close()
		return nil, err
	}
	if rc != nil {
		in.redis = rc
		in.states = state.NewRedisStore(rc.Client)
		in.checks = append(in.checks, healthCheck{name: "redis", ping: rc.Health})
		logger.Info("state store: redis")
	} else {
		in.states = state.NewMemoryStore(cfg.SessionTTL)
		logger.Info("state store: memory")
	}

	if len(cfg.Audit.Brokers) > 0 {
		ks, err := kafkastore.New(cfg.Audit.Brokers, cfg.Audit.Topic)
		if err != nil {
			in.Close()
			return nil, err
		}
		topicCtx, cancel := context.WithTimeout(ctx, dependencyTimeout)
		err = ks.EnsureTopic(topicCtx, auditPartitions, auditReplication)
		cancel()
		if err != nil {
			ks.Close()
			in.Close()
			return nil, fmt.Errorf("ensure audit topic: %w", err)
		}
		in.kafka = ks
		in.audit = ks
		in.checks = append(in.checks, healthCheck{name: "kafka", ping: ks.Ping})
		logger.Info("audit store: kafka", "topic", cfg.Audit.Topic)
	} else {
		in.audit = auditmemory.NewInMemoryStore()
		logger.Info("audit store: memory")
	}

	return in, nil
}

// Health pings every configured dependency.
func (in *infra) Health(ctx context.Context) error {
	var errs []error
	for _, c := range in.checks {
		if err := c.ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

func (in *infra) Close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}
