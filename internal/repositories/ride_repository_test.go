package repositories

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/jjjimenez100/backend-coding-test/config"
	"github.com/jjjimenez100/backend-coding-test/internal/database"
	"github.com/jjjimenez100/backend-coding-test/internal/models"
	"github.com/jjjimenez100/backend-coding-test/internal/query"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockExecutor records every statement sent to the store
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Select(ctx context.Context, dest interface{}, q string, args ...interface{}) (int64, error) {
	ret := m.Called(ctx, dest, q, args)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *MockExecutor) Insert(ctx context.Context, q string, args ...interface{}) (int64, error) {
	ret := m.Called(ctx, q, args)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *MockExecutor) Update(ctx context.Context, q string, args ...interface{}) (int64, error) {
	ret := m.Called(ctx, q, args)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *MockExecutor) Delete(ctx context.Context, q string, args ...interface{}) error {
	ret := m.Called(ctx, q, args)
	return ret.Error(0)
}

func validInput() models.RideInput {
	return models.RideInput{
		StartLat:      10,
		StartLong:     20,
		EndLat:        -10,
		EndLong:       -20,
		RiderName:     "Rider",
		DriverName:    "Driver",
		DriverVehicle: "Vehicle",
	}
}

func TestSave_InvalidCoordinatesSkipStore(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.RideInput)
	}{
		{"start lat 91", func(in *models.RideInput) { in.StartLat = 91 }},
		{"end lat -91", func(in *models.RideInput) { in.EndLat = -91 }},
		{"start long 181", func(in *models.RideInput) { in.StartLong = 181 }},
		{"end long -181", func(in *models.RideInput) { in.EndLong = -181 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := new(MockExecutor)
			repo := NewRideRepository(exec)

			in := validInput()
			tt.mutate(&in)

			id, err := repo.Save(context.Background(), in)
			require.Error(t, err)
			assert.Zero(t, id)
			assert.Equal(t, models.KindValidation, models.KindOf(err))

			exec.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
			assert.Empty(t, exec.Calls)
		})
	}
}

func TestSave_InsertsValidatedFields(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRideRepository(exec)
	in := validInput()

	exec.On("Insert", mock.Anything, insertRide,
		[]interface{}{10.0, 20.0, -10.0, -20.0, "Rider", "Driver", "Vehicle"}).
		Return(int64(42), nil)

	id, err := repo.Save(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	exec.AssertExpectations(t)
}

func TestSave_StorageErrorKeepsKind(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRideRepository(exec)

	storageErr := &models.StorageError{Op: query.OpInsert, Err: errors.New("disk full")}
	exec.On("Insert", mock.Anything, insertRide, mock.Anything).Return(int64(0), storageErr)

	_, err := repo.Save(context.Background(), validInput())
	require.Error(t, err)
	assert.Equal(t, models.KindStorage, models.KindOf(err))
}

func TestGetAll_Offset(t *testing.T) {
	tests := []struct {
		page, limit int
		offset      int64
	}{
		{1, 10, 0},
		{2, 10, 10},
		{3, 6, 12},
		{5, 1, 4},
		{math.MaxInt64, 1, math.MaxInt64 - 1},
		{1 << 62, 4, math.MaxInt64},
		{(1 << 62) + 1, 4, math.MaxInt64},
		{2, math.MaxInt64, math.MaxInt64},
		{3, math.MaxInt64, math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d limit %d", tt.page, tt.limit), func(t *testing.T) {
			exec := new(MockExecutor)
			repo := NewRideRepository(exec)

			exec.On("Select", mock.Anything, mock.AnythingOfType("*[]models.RideRecord"), selectRidePage,
				[]interface{}{tt.limit, tt.offset}).
				Return(int64(0), nil)

			rides, err := repo.GetAll(context.Background(), tt.page, tt.limit)
			require.NoError(t, err)
			assert.NotNil(t, rides)
			assert.Empty(t, rides)
			exec.AssertExpectations(t)
		})
	}
}

func TestGetByID_MapsRecords(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRideRepository(exec)

	exec.On("Select", mock.Anything, mock.Anything, selectRideByID, []interface{}{int64(3)}).
		Run(func(args mock.Arguments) {
			dest := args.Get(1).(*[]models.RideRecord)
			*dest = []models.RideRecord{{RideID: 3, RiderName: "Rider", StartLat: 1}}
		}).
		Return(int64(1), nil)

	rides, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rides, 1)
	assert.Equal(t, int64(3), rides[0].ID())
	assert.Equal(t, "Rider", rides[0].RiderName())
}

func TestGetTotalCount_StorageError(t *testing.T) {
	exec := new(MockExecutor)
	repo := NewRideRepository(exec)

	exec.On("Select", mock.Anything, mock.Anything, countRides, mock.Anything).
		Return(int64(0), &models.StorageError{Op: query.OpSelect, Err: errors.New("locked")})

	_, err := repo.GetTotalCount(context.Background())
	assert.Equal(t, models.KindStorage, models.KindOf(err))
}

func newSQLiteRepository(t *testing.T) *SQLRideRepository {
	t.Helper()

	db, err := database.Connect(config.DatabaseConfig{Driver: database.DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Migrate(db))

	return NewRideRepository(query.NewGormExecutor(db))
}

func TestSQLRideRepository_RoundTrip(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	inputs := []models.RideInput{
		validInput(),
		{StartLat: 90, StartLong: 180, EndLat: -90, EndLong: -180, RiderName: "A", DriverName: "B", DriverVehicle: "C"},
		{StartLat: 0.123456789, StartLong: -0.5, EndLat: 45.5, EndLong: 179.999, RiderName: "Zoë", DriverName: "Ngozi", DriverVehicle: "Tesla Model 3"},
	}

	for _, in := range inputs {
		id, err := repo.Save(ctx, in)
		require.NoError(t, err)
		require.Positive(t, id)

		rides, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.Len(t, rides, 1)
		assert.Equal(t, id, rides[0].ID())
		assert.Equal(t, in, rides[0].Input())
		assert.False(t, rides[0].Created().IsZero())
	}
}

func TestSQLRideRepository_GetByIDMissing(t *testing.T) {
	repo := newSQLiteRepository(t)

	rides, err := repo.GetByID(context.Background(), 12345)
	require.NoError(t, err)
	assert.NotNil(t, rides)
	assert.Empty(t, rides)
}

func TestSQLRideRepository_Pagination(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		in := validInput()
		in.RiderName = fmt.Sprintf("Rider %d", i+1)
		_, err := repo.Save(ctx, in)
		require.NoError(t, err)
	}

	total, err := repo.GetTotalCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)

	all, err := repo.GetAll(ctx, 1, 100)
	require.NoError(t, err)
	require.Len(t, all, 15)

	for _, tc := range []struct{ page, limit, want int }{
		{1, 10, 10},
		{2, 10, 5},
		{3, 6, 3},
		{4, 5, 0},
		{15, 1, 1},
	} {
		page, err := repo.GetAll(ctx, tc.page, tc.limit)
		require.NoError(t, err)
		require.Len(t, page, tc.want, "page %d limit %d", tc.page, tc.limit)

		skip := (tc.page - 1) * tc.limit
		for i, ride := range page {
			assert.Equal(t, all[skip+i].ID(), ride.ID())
		}
	}
}

func TestSQLRideRepository_HugePageIsEmpty(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Save(ctx, validInput())
		require.NoError(t, err)
	}

	for _, tc := range []struct{ page, limit int }{
		{(1 << 62) + 1, 4},
		{1 << 62, 4},
		{math.MaxInt64, 2},
		{2, math.MaxInt64},
	} {
		rides, err := repo.GetAll(ctx, tc.page, tc.limit)
		require.NoError(t, err)
		assert.NotNil(t, rides)
		assert.Empty(t, rides, "page %d limit %d", tc.page, tc.limit)
	}
}

func TestSQLRideRepository_SaveInvalidLeavesTableEmpty(t *testing.T) {
	repo := newSQLiteRepository(t)
	ctx := context.Background()

	in := validInput()
	in.StartLat = 91
	_, err := repo.Save(ctx, in)
	require.Error(t, err)

	total, err := repo.GetTotalCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}
