package repositories

import (
	"context"
	"math"

	"github.com/jjjimenez100/backend-coding-test/internal/models"
	"github.com/jjjimenez100/backend-coding-test/internal/query"

	"github.com/pkg/errors"
)

const (
	selectRideByID = `SELECT * FROM "Rides" WHERE "rideID" = ?`
	selectRidePage = `SELECT * FROM "Rides" ORDER BY "rideID" LIMIT ? OFFSET ?`
	countRides     = `SELECT COUNT(*) AS count FROM "Rides"`
	insertRide     = `INSERT INTO "Rides" ("startLat", "startLong", "endLat", "endLong", "riderName", "driverName", "driverVehicle") ` +
		`VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING "rideID"`
)

// RideRepository provides access to ride data
type RideRepository interface {
	GetByID(ctx context.Context, id int64) ([]models.Ride, error)
	GetAll(ctx context.Context, page, limit int) ([]models.Ride, error)
	GetTotalCount(ctx context.Context) (int64, error)
	Save(ctx context.Context, in models.RideInput) (int64, error)
}

// SQLRideRepository implements RideRepository on a query executor
type SQLRideRepository struct {
	exec query.Executor
}

var _ RideRepository = (*SQLRideRepository)(nil)

// NewRideRepository creates a new ride repository
func NewRideRepository(exec query.Executor) *SQLRideRepository {
	return &SQLRideRepository{exec: exec}
}

// GetByID returns the ride with the given id as a sequence of zero or one
// rides. A missing ride is an empty result, not an error.
func (r *SQLRideRepository) GetByID(ctx context.Context, id int64) ([]models.Ride, error) {
	var records []models.RideRecord
	if _, err := r.exec.Select(ctx, &records, selectRideByID, id); err != nil {
		return nil, errors.Wrap(err, "failed to get ride by id")
	}
	return toRides(records), nil
}

// GetAll returns one page of rides ordered by id. page and limit must
// already be validated as >= 1.
func (r *SQLRideRepository) GetAll(ctx context.Context, page, limit int) ([]models.Ride, error) {
	offset := pageOffset(page, limit)

	var records []models.RideRecord
	if _, err := r.exec.Select(ctx, &records, selectRidePage, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed to get rides")
	}
	return toRides(records), nil
}

// pageOffset returns (page-1)*limit, saturating at math.MaxInt64 so a huge
// page lands past the last row instead of wrapping around to the first
func pageOffset(page, limit int) int64 {
	skipped, size := int64(page-1), int64(limit)
	if skipped <= 0 || size <= 0 {
		return 0
	}
	if skipped > math.MaxInt64/size {
		return math.MaxInt64
	}
	return skipped * size
}

// GetTotalCount counts every ride in the table
func (r *SQLRideRepository) GetTotalCount(ctx context.Context) (int64, error) {
	var count int64
	if _, err := r.exec.Select(ctx, &count, countRides); err != nil {
		return 0, errors.Wrap(err, "failed to count rides")
	}
	return count, nil
}

// Save validates the input and inserts it, returning the store-assigned id.
// Nothing is sent to the store when validation fails. Callers that need the
// persisted row read it back with GetByID in a separate call.
func (r *SQLRideRepository) Save(ctx context.Context, in models.RideInput) (int64, error) {
	ride, err := models.NewRide(in)
	if err != nil {
		return 0, err
	}

	id, err := r.exec.Insert(ctx, insertRide,
		ride.StartLat(),
		ride.StartLong(),
		ride.EndLat(),
		ride.EndLong(),
		ride.RiderName(),
		ride.DriverName(),
		ride.DriverVehicle(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to save ride")
	}
	return id, nil
}

func toRides(records []models.RideRecord) []models.Ride {
	rides := make([]models.Ride, 0, len(records))
	for _, record := range records {
		rides = append(rides, record.Ride())
	}
	return rides
}
