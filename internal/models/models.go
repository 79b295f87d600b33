package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// RideRecord is the persisted row of a ride
type RideRecord struct {
	RideID        int64     `gorm:"column:rideID;primaryKey;autoIncrement"`
	StartLat      float64   `gorm:"column:startLat;type:double precision;not null"`
	StartLong     float64   `gorm:"column:startLong;type:double precision;not null"`
	EndLat        float64   `gorm:"column:endLat;type:double precision;not null"`
	EndLong       float64   `gorm:"column:endLong;type:double precision;not null"`
	RiderName     string    `gorm:"column:riderName;type:text;not null"`
	DriverName    string    `gorm:"column:driverName;type:text;not null"`
	DriverVehicle string    `gorm:"column:driverVehicle;type:text;not null"`
	Created       time.Time `gorm:"column:created;not null;default:CURRENT_TIMESTAMP"`
}

// TableName keeps the historical table name
func (RideRecord) TableName() string {
	return "Rides"
}

// Ride converts the row into its domain value
func (r RideRecord) Ride() Ride {
	return RestoreRide(r.RideID, r.Created, RideInput{
		StartLat:      r.StartLat,
		StartLong:     r.StartLong,
		EndLat:        r.EndLat,
		EndLong:       r.EndLong,
		RiderName:     r.RiderName,
		DriverName:    r.DriverName,
		DriverVehicle: r.DriverVehicle,
	})
}

// RidePage is one window of the ride listing plus navigation links
type RidePage struct {
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
	TotalCount int64   `json:"totalCount"`
	Results    []Ride  `json:"results"`
}

// RideCreatedEvent is published after a ride is persisted
type RideCreatedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	RideID     int64     `json:"ride_id"`
	Ride       Ride      `json:"ride"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewRideCreatedEvent wraps a persisted ride in an event envelope
func NewRideCreatedEvent(ride Ride) RideCreatedEvent {
	return RideCreatedEvent{
		EventID:    uuid.New(),
		RideID:     ride.ID(),
		Ride:       ride,
		OccurredAt: time.Now().UTC(),
	}
}

// SetupModels creates the Rides table if it does not exist
func SetupModels(db *gorm.DB) error {
	if err := db.AutoMigrate(&RideRecord{}); err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}
	return nil
}
