package container

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"catalog/enricher/internal/ai"
	"catalog/enricher/internal/attach"
	"catalog/enricher/internal/classify"
	"catalog/enricher/internal/config"
	"catalog/enricher/internal/ensure"
	"catalog/enricher/internal/gateway"
	"catalog/enricher/internal/lock"
	"catalog/enricher/internal/pipeline"
	"catalog/enricher/internal/repository"
	"catalog/enricher/internal/server"
	"catalog/enricher/internal/taxonomy"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Gateway    gateway.Gateway
	AI         ai.Service
	Taxonomy   *taxonomy.Store
	Classifier *classify.Classifier
	Ensurer    *ensure.Ensurer
	Attacher   *attach.Attacher
	Lock       lock.ProductLock
	Runs       repository.RunRepository
	Pipeline   *pipeline.Pipeline
	Server     *server.Server

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	catalogGateway := gateway.NewCatalogClient(cfg.Catalog)
	container.Gateway = catalogGateway

	aiService := ai.NewClaudeService(cfg.AI)
	container.AI = aiService

	store := taxonomy.NewStore(cfg.Taxonomy.DefinitionFile)
	store.Load()
	container.Taxonomy = store

	container.Classifier = classify.NewClassifier(store, aiService)
	container.Ensurer = ensure.NewEnsurer(catalogGateway, ensure.NewImageFinder(cfg.Images, catalogGateway))
	container.Attacher = attach.NewAttacher(catalogGateway, cfg.Attachment)

	container.Lock = lock.NewNoopLock()
	if cfg.Redis.Host != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})

		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		container.redis = rdb
		container.Lock = lock.NewRedisProductLock(rdb, time.Duration(cfg.Redis.LockTTLSeconds)*time.Second)
	}

	container.Runs = repository.NewNoopRepository()
	if cfg.Database.Host != "" {
		db, err := pgxpool.New(context.Background(),
			fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
				cfg.Database.Host,
				cfg.Database.Port,
				cfg.Database.User,
				cfg.Database.Password,
				cfg.Database.Name,
			))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("✅ Connected to run-audit database")

		container.db = db
		container.Runs = repository.NewRunRepository(db)
	}

	container.Pipeline = pipeline.New(
		catalogGateway,
		aiService,
		container.Classifier,
		container.Ensurer,
		container.Attacher,
		container.Lock,
		container.Runs,
	)

	verifier := server.NewNoopVerifier()
	if cfg.Webhook.Secret != "" {
		verifier = server.NewHMACVerifier(cfg.Webhook.Secret)
	} else {
		log.Warn("⚠️ No webhook secret configured, signature verification disabled")
	}
	container.Server = server.New(cfg.Server, container.Pipeline, verifier)

	return container, nil
}

// Run serves webhooks until the context is cancelled
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Server.ListenAndServe()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return c.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			return err
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
