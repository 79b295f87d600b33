package cmd

import (
	"context"

	"github.com/jjjimenez100/backend-coding-test/config"
	"github.com/jjjimenez100/backend-coding-test/internal/api"
	"github.com/jjjimenez100/backend-coding-test/internal/cache"
	"github.com/jjjimenez100/backend-coding-test/internal/database"
	"github.com/jjjimenez100/backend-coding-test/internal/messaging"
	"github.com/jjjimenez100/backend-coding-test/internal/metrics"
	"github.com/jjjimenez100/backend-coding-test/internal/query"
	"github.com/jjjimenez100/backend-coding-test/internal/repositories"
	"github.com/jjjimenez100/backend-coding-test/internal/search"
	"github.com/jjjimenez100/backend-coding-test/internal/services"
	"github.com/jjjimenez100/backend-coding-test/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// dependencies holds every connection a command may use. Only the store is
// required; the rest are nil when unconfigured or unreachable.
type dependencies struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	tracer  tracing.Tracer
	cache   *cache.RedisCache
	search  *search.ElasticClient
	bus     *messaging.AzureServiceBus
}

func openDependencies(cfg config.Config) (*dependencies, error) {
	// Initialize metrics
	collector := metrics.NewMetrics()

	// Initialize the database, the only required dependency
	db, err := database.Connect(cfg.DB, collector)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	collector.SetHealth("database", true)

	deps := &dependencies{db: db, metrics: collector}

	// Initialize tracer
	deps.tracer, err = tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		deps.tracer = tracing.NewNoopTracer()
	}

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	case redisCache.Enabled():
		deps.cache = redisCache
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	switch {
	case errors.Is(err, search.ErrSearchDisabled):
		log.Info().Msg("Elasticsearch not configured, search is disabled")
	case err != nil:
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	default:
		deps.search = elasticClient
	}

	// Initialize Azure Service Bus client
	bus, err := messaging.NewAzureServiceBus(cfg.Azure)
	switch {
	case errors.Is(err, messaging.ErrMessagingDisabled):
		log.Info().Msg("Service Bus not configured, ride events are not published")
	case err != nil:
		log.Warn().Err(err).Msg("Failed to initialize Azure Service Bus, continuing without events")
	default:
		deps.bus = bus
	}

	return deps, nil
}

func (d *dependencies) rideService() *services.RideService {
	opts := []services.Option{
		services.WithMetrics(d.metrics),
		services.WithTracer(d.tracer),
	}
	if d.cache != nil {
		opts = append(opts, services.WithCache(d.cache))
	}
	if d.search != nil {
		opts = append(opts, services.WithIndexer(d.search), services.WithSearcher(d.search))
	}
	if d.bus != nil {
		opts = append(opts, services.WithPublisher(d.bus))
	}

	repo := repositories.NewRideRepository(query.NewGormExecutor(d.db))
	return services.NewRideService(repo, opts...)
}

func (d *dependencies) healthChecks() map[string]api.HealthCheck {
	checks := map[string]api.HealthCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, d.db) },
	}
	if d.cache != nil {
		checks["redis"] = d.cache.Ping
	}
	if d.search != nil {
		checks["elasticsearch"] = d.search.Ping
	}
	return checks
}

func (d *dependencies) close() {
	if d.bus != nil {
		if err := d.bus.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Service Bus client")
		}
	}
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis cache")
		}
	}
	d.tracer.Close()
	if err := database.Close(d.db); err != nil {
		log.Error().Err(err).Msg("Failed to close database")
	}
}
