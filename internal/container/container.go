package container

import (
	"context"
	"fmt"
	"time"

	"civitai/harvester/internal/client"
	"civitai/harvester/internal/config"
	"civitai/harvester/internal/proxy"
	"civitai/harvester/internal/repository"
	"civitai/harvester/internal/service"
	"civitai/harvester/internal/state"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Pages        repository.PageStore
	Selection    repository.SelectionStore
	StateManager state.StateManager
	Client       client.CivitaiClient
	Walker       *service.Walker

	// Opened on first use; only the view and export commands need them.
	images client.ImageFetcher
	db     *pgxpool.Pool
	redis  *redis.Client
}

// New creates a new container with the crawl and curation components wired
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config:    cfg,
		Pages:     repository.NewFilePageStore(cfg.Data.Dir, cfg.Data.PageGlob),
		Selection: repository.NewFileSelectionStore(cfg.Data.SelectedPath()),
	}

	stateManager, err := container.newStateManager(ctx)
	if err != nil {
		return nil, err
	}
	container.StateManager = stateManager

	proxySupplier := proxy.NewProxySupplier(cfg.Civitai.Proxies)
	if proxySupplier.Len() > 0 {
		log.Infof("🔀 Using %d proxies", proxySupplier.Len())
	}

	container.Client = client.NewCivitaiClient(cfg.Civitai, proxySupplier, container.Pages)
	container.Walker = service.NewWalker(container.Client, stateManager, cfg.Civitai.MaxConsecutiveFailures)

	return container, nil
}

func (c *Container) newStateManager(ctx context.Context) (state.StateManager, error) {
	switch c.Config.State.Backend {
	case config.StateBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", c.Config.Redis.Host, c.Config.Redis.Port),
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.Database,
		})

		// Test connection
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		c.redis = rdb
		return state.NewRedisStateManager(rdb, c.Config.Redis.KeyPrefix), nil
	case config.StateBackendFile:
		return state.NewFileStateManager(c.Config.State.File), nil
	default:
		return state.NewNoopStateManager(), nil
	}
}

// Images returns the curator's image fetcher, creating it on first use
func (c *Container) Images() (client.ImageFetcher, error) {
	if c.images != nil {
		return c.images, nil
	}

	fetcher, err := client.NewImageFetcher(
		time.Duration(c.Config.Viewer.ImageTimeout)*time.Second,
		c.Config.Viewer.CacheMaxCost,
	)
	if err != nil {
		return nil, err
	}
	c.images = fetcher
	return fetcher, nil
}

// Items connects to Postgres and returns the export repository
func (c *Container) Items(ctx context.Context) (repository.ItemRepository, error) {
	if c.db == nil {
		db, err := pgxpool.New(ctx, c.Config.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		log.Info("✅ Connected to Postgres successfully")
		c.db = db
	}
	return repository.NewItemRepository(c.db), nil
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Debug("Shutting down container...")

	if c.images != nil {
		c.images.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			return fmt.Errorf("failed to close Redis client: %w", err)
		}
	}

	log.Debug("Container shut down successfully")
	return nil
}
