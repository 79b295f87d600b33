package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jjjimenez100/backend-coding-test/internal/cache"
	"github.com/jjjimenez100/backend-coding-test/internal/messaging"
	"github.com/jjjimenez100/backend-coding-test/internal/metrics"
	"github.com/jjjimenez100/backend-coding-test/internal/models"
	"github.com/jjjimenez100/backend-coding-test/internal/repositories"
	"github.com/jjjimenez100/backend-coding-test/internal/search"
	"github.com/jjjimenez100/backend-coding-test/internal/tracing"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10

	pageReason  = "Page should be a number greater than 1"
	limitReason = "Limit should be a number greater than 1"
	idReason    = "ID should be a positive number greater than 0"
	termReason  = "q must be a non-empty string"
)

// RideCache is the read-through cache used for single ride lookups
type RideCache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// RideService validates client input, shapes paginated responses and
// delegates storage to the ride repository
type RideService struct {
	repo      repositories.RideRepository
	cache     RideCache
	publisher messaging.RidePublisher
	indexer   search.RideIndexer
	searcher  search.RideSearcher
	metrics   *metrics.Metrics
	tracer    tracing.Tracer
}

// Option configures optional collaborators of RideService
type Option func(*RideService)

func WithCache(c RideCache) Option { return func(s *RideService) { s.cache = c } }
func WithPublisher(p messaging.RidePublisher) Option { return func(s *RideService) { s.publisher = p } }
func WithIndexer(i search.RideIndexer) Option { return func(s *RideService) { s.indexer = i } }
func WithSearcher(sr search.RideSearcher) Option { return func(s *RideService) { s.searcher = sr } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *RideService) { s.metrics = m } }
func WithTracer(t tracing.Tracer) Option { return func(s *RideService) { s.tracer = t } }

// NewRideService creates a new ride service
func NewRideService(repo repositories.RideRepository, opts ...Option) *RideService {
	s := &RideService{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewMetrics()
	}
	if s.tracer == nil {
		s.tracer = tracing.NewNoopTracer()
	}
	return s
}

func (s *RideService) span(ctx context.Context, name string) *newrelic.Segment {
	return s.tracer.StartSpan(name, newrelic.FromContext(ctx))
}

// ListRides returns one page of rides. Empty parameters default to page 1
// and limit 10. The page contents and the total count come from two
// independent reads and may disagree under concurrent writes.
func (s *RideService) ListRides(ctx context.Context, pageParam, limitParam string) (*models.RidePage, error) {
	page, err := parsePositiveInt("page", pageParam, DefaultPage, pageReason)
	if err != nil {
		return nil, err
	}
	limit, err := parsePositiveInt("limit", limitParam, DefaultLimit, limitReason)
	if err != nil {
		return nil, err
	}

	seg := s.span(ctx, "RideRepository/GetAll")
	rides, err := s.repo.GetAll(ctx, page, limit)
	seg.End()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list rides")
	}

	seg = s.span(ctx, "RideRepository/GetTotalCount")
	total, err := s.repo.GetTotalCount(ctx)
	seg.End()
	if err != nil {
		return nil, errors.Wrap(err, "failed to count rides")
	}

	return BuildRidePage(page, limit, total, rides), nil
}

// BuildRidePage attaches navigation links to a page of rides. next is set
// only when page*limit <= total; previous is nil on the first page.
func BuildRidePage(page, limit int, total int64, rides []models.Ride) *models.RidePage {
	if rides == nil {
		rides = []models.Ride{}
	}

	result := &models.RidePage{
		TotalCount: total,
		Results:    rides,
	}
	if hasNextPage(page, limit, total) {
		next := pageLink(page+1, limit)
		result.Next = &next
	}
	if page != 1 {
		previous := pageLink(page-1, limit)
		result.Previous = &previous
	}
	return result
}

// hasNextPage computes page*limit <= total without overflowing
func hasNextPage(page, limit int, total int64) bool {
	if total <= 0 {
		return false
	}
	return int64(page) <= total/int64(limit)
}

func pageLink(page, limit int) string {
	return fmt.Sprintf("/rides?page=%d&limit=%d", page, limit)
}

// GetRide returns zero or one ride for the given id. Negative and
// non-integer ids are rejected; 0 matches no ride and yields an empty result.
func (s *RideService) GetRide(ctx context.Context, idParam string) ([]models.Ride, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(idParam), 10, 64)
	if err != nil || id < 0 {
		return nil, &models.ValidationError{Field: "id", Value: idParam, Reason: idReason}
	}

	key := cache.GetRideCacheKey(id)
	if s.cache != nil {
		var cached models.Ride
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.IncrementCounter(metrics.CacheHits)
			return []models.Ride{cached}, nil
		}
		s.metrics.IncrementCounter(metrics.CacheMisses)
	}

	seg := s.span(ctx, "RideRepository/GetByID")
	rides, err := s.repo.GetByID(ctx, id)
	seg.End()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get ride")
	}

	// Rides are immutable; entries only expire by TTL
	if s.cache != nil && len(rides) == 1 {
		if err := s.cache.Set(ctx, key, rides[0], 0); err != nil {
			log.Warn().Err(err).Int64("ride_id", id).Msg("Failed to cache ride")
		}
	}

	return rides, nil
}

// CreateRide validates the request, saves the ride and reads it back.
// Save and the read-back are separate store calls with no transaction
// between them.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) ([]models.Ride, error) {
	input, err := req.toInput()
	if err != nil {
		return nil, err
	}

	seg := s.span(ctx, "RideRepository/Save")
	id, err := s.repo.Save(ctx, input)
	seg.End()
	if err != nil {
		return nil, errors.Wrap(err, "failed to save ride")
	}

	seg = s.span(ctx, "RideRepository/GetByID")
	rides, err := s.repo.GetByID(ctx, id)
	seg.End()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read saved ride")
	}

	s.metrics.IncrementCounter(metrics.RidesCreated)
	for _, ride := range rides {
		s.announce(ctx, ride)
	}
	return rides, nil
}

// announce publishes the new ride, or indexes it directly when no
// publisher is configured. Failures never fail the request.
func (s *RideService) announce(ctx context.Context, ride models.Ride) {
	if s.publisher != nil {
		if err := s.publisher.PublishRideCreated(ctx, ride); err != nil {
			log.Warn().Err(err).Int64("ride_id", ride.ID()).Msg("Failed to publish ride created event")
			return
		}
		s.metrics.IncrementCounter(metrics.EventsPublished)
		return
	}

	if s.indexer != nil {
		if err := s.indexer.IndexRide(ctx, ride); err != nil {
			log.Warn().Err(err).Int64("ride_id", ride.ID()).Msg("Failed to index ride")
			return
		}
		s.metrics.IncrementCounter(metrics.RidesIndexed)
	}
}

// SearchRides runs a text search over rider, driver and vehicle names
func (s *RideService) SearchRides(ctx context.Context, term, limitParam string) ([]models.Ride, error) {
	if s.searcher == nil {
		return nil, search.ErrSearchDisabled
	}

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, &models.ValidationError{Field: "q", Value: term, Reason: termReason}
	}
	limit, err := parsePositiveInt("limit", limitParam, DefaultLimit, limitReason)
	if err != nil {
		return nil, err
	}

	rides, err := s.searcher.SearchRides(ctx, term, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search rides")
	}
	return rides, nil
}

// HandleRideCreated indexes the ride carried by a ride-created event
func (s *RideService) HandleRideCreated(ctx context.Context, event models.RideCreatedEvent) error {
	if s.indexer == nil {
		return search.ErrSearchDisabled
	}
	if err := s.indexer.IndexRide(ctx, event.Ride); err != nil {
		return errors.Wrapf(err, "failed to index ride %d", event.RideID)
	}
	s.metrics.IncrementCounter(metrics.RidesIndexed)
	return nil
}

// ReindexAll walks every ride page by page and bulk-indexes each page.
// It returns the number of rides indexed.
func (s *RideService) ReindexAll(ctx context.Context, batchSize int) (int, error) {
	if s.indexer == nil {
		return 0, search.ErrSearchDisabled
	}
	if batchSize < 1 {
		batchSize = DefaultLimit
	}

	total, err := s.repo.GetTotalCount(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count rides for reindex")
	}

	indexed := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		rides, err := s.repo.GetAll(ctx, page, batchSize)
		if err != nil {
			return indexed, errors.Wrapf(err, "failed to load page %d for reindex", page)
		}
		if len(rides) == 0 {
			break
		}
		if err := s.indexer.IndexRides(ctx, rides); err != nil {
			return indexed, errors.Wrapf(err, "failed to index page %d", page)
		}
		indexed += len(rides)

		if len(rides) < batchSize {
			break
		}
	}

	s.metrics.IncrementCounterBy(metrics.RidesIndexed, int64(indexed))
	log.Info().Int("indexed", indexed).Int64("total", total).Msg("Reindexed rides")
	return indexed, nil
}
