package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bigfive-core/internal/config"
	"bigfive-core/internal/db"
	"bigfive-core/internal/llm"
	"bigfive-core/internal/repository"
	"bigfive-core/internal/service"
)

// App agrupa repositorios y servicios del motor, compartidos por la API y scorectl.
type App struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client

	Assignments *repository.PgAssignmentRepository
	Configs     *repository.PgConfigRepository
	Questions   *repository.PgQuestionRepository
	Responses   *repository.PgResponseRepository
	Results     *repository.PgResultRepository
	Connections *repository.PgConnectionRepository
	Reports     *repository.PgCrossProfileRepository
	Users       *repository.PgUserRepository

	Scoring      *service.ScoringService
	Repair       *service.RepairService
	Submission   *service.SubmissionService
	CrossProfile *service.CrossProfileService
	Config       *service.ConfigService
	Audit        *service.AuditService
}

// Build abre el pool, aplica migraciones si AUTO_MIGRATE y arma los servicios.
// close libera pool y redis.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, func(), error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.Ping(pingCtx, pool)
	cancel()
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db migrate: %w", err)
		}
		logger.Info("schema migrated")
	}

	a := &App{
		Pool:        pool,
		Assignments: repository.NewPgAssignmentRepository(pool),
		Configs:     repository.NewPgConfigRepository(pool),
		Questions:   repository.NewPgQuestionRepository(pool),
		Responses:   repository.NewPgResponseRepository(pool),
		Results:     repository.NewPgResultRepository(pool),
		Connections: repository.NewPgConnectionRepository(pool),
		Reports:     repository.NewPgCrossProfileRepository(pool),
		Users:       repository.NewPgUserRepository(pool),
	}

	locker := service.NewMemoryAssignmentLocker(cfg.LockWait)
	if cfg.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := a.Redis.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-process locks", zap.Error(err))
		} else {
			locker = service.NewRedisAssignmentLocker(a.Redis, cfg.LockTTL, cfg.LockWait)
		}
		cancel()
	}

	var drafter service.TextDrafter
	if cfg.LLMAPIKey != "" {
		client := llm.NewHTTPClient(llm.Options{
			BaseURL:     cfg.LLMBaseURL,
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			System:      service.DraftSystemPrompt,
			Temperature: 0.4,
			JSONMode:    true,
			MaxRetries:  cfg.LLMMaxRetries,
		}, logger)
		drafter = service.NewLLMTextDrafter(client, logger)
	}

	tx := db.NewTxManager(pool, cfg.StoreTimeout)
	a.Scoring = service.NewScoringService(a.Assignments, a.Responses, a.Configs, tx, logger)
	a.Repair = service.NewRepairService(a.Assignments, a.Responses, a.Results, a.Configs, tx, locker, logger)
	a.Submission = service.NewSubmissionService(a.Assignments, a.Questions, a.Responses, a.Configs, a.Repair, tx, locker, logger)
	a.CrossProfile = service.NewCrossProfileService(a.Connections, a.Users, a.Assignments, a.Responses, a.Results, a.Reports, a.Repair, logger)
	a.Config = service.NewConfigService(a.Configs, a.Assignments, a.Questions, tx, drafter, logger)
	a.Audit = service.NewAuditService(a.Assignments, a.Repair, logger)

	closeFn := func() {
		if a.Redis != nil {
			_ = a.Redis.Close()
		}
		pool.Close()
	}
	return a, closeFn, nil
}
