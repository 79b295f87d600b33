package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

// CreatedLayout is the textual form of a ride's creation timestamp
const CreatedLayout = "2006-01-02 15:04:05"

var (
	LatitudeRange  = Range{Min: -90, Max: 90}
	LongitudeRange = Range{Min: -180, Max: 180}
)

// RideInput carries the caller-supplied fields of a ride
type RideInput struct {
	StartLat      float64
	StartLong     float64
	EndLat        float64
	EndLong       float64
	RiderName     string
	DriverName    string
	DriverVehicle string
}

// Ride is an immutable ride record. The zero value is not a valid ride;
// build one with NewRide or RestoreRide.
type Ride struct {
	id            int64
	startLat      float64
	startLong     float64
	endLat        float64
	endLong       float64
	riderName     string
	driverName    string
	driverVehicle string
	created       time.Time
}

// NewRide validates the coordinates of in and returns a ride that has not been
// persisted yet. Every out-of-range coordinate is reported in the returned
// ValidationErrors. Names are kept as given.
func NewRide(in RideInput) (Ride, error) {
	var errs ValidationErrors
	check := func(field string, v float64, r Range) {
		if err := checkCoordinate(field, v, r); err != nil {
			errs = append(errs, err)
		}
	}

	check("startLat", in.StartLat, LatitudeRange)
	check("startLong", in.StartLong, LongitudeRange)
	check("endLat", in.EndLat, LatitudeRange)
	check("endLong", in.EndLong, LongitudeRange)

	if len(errs) > 0 {
		return Ride{}, errs
	}
	return newRide(0, time.Time{}, in), nil
}

// RestoreRide rehydrates a ride read back from the store. No validation is done:
// the store owns id and created.
func RestoreRide(id int64, created time.Time, in RideInput) Ride {
	return newRide(id, created, in)
}

func newRide(id int64, created time.Time, in RideInput) Ride {
	return Ride{
		id:            id,
		startLat:      in.StartLat,
		startLong:     in.StartLong,
		endLat:        in.EndLat,
		endLong:       in.EndLong,
		riderName:     in.RiderName,
		driverName:    in.DriverName,
		driverVehicle: in.DriverVehicle,
		created:       created,
	}
}

func checkCoordinate(field string, v float64, r Range) *ValidationError {
	bound := r
	if math.IsNaN(v) {
		return &ValidationError{
			Field:  field,
			Value:  v,
			Range:  &bound,
			Reason: fmt.Sprintf("%s must be a numeric value", field),
		}
	}
	if !r.Contains(v) {
		return &ValidationError{
			Field:  field,
			Value:  v,
			Range:  &bound,
			Reason: fmt.Sprintf("%s should not be greater than %g or less than %g", field, r.Max, r.Min),
		}
	}
	return nil
}

func (r Ride) ID() int64             { return r.id }
func (r Ride) StartLat() float64     { return r.startLat }
func (r Ride) StartLong() float64    { return r.startLong }
func (r Ride) EndLat() float64       { return r.endLat }
func (r Ride) EndLong() float64      { return r.endLong }
func (r Ride) RiderName() string     { return r.riderName }
func (r Ride) DriverName() string    { return r.driverName }
func (r Ride) DriverVehicle() string { return r.driverVehicle }
func (r Ride) Created() time.Time    { return r.created }

// Persisted reports whether the ride carries a store-assigned identity
func (r Ride) Persisted() bool {
	return r.id > 0
}

// Input returns the caller-supplied fields of the ride
func (r Ride) Input() RideInput {
	return RideInput{
		StartLat:      r.startLat,
		StartLong:     r.startLong,
		EndLat:        r.endLat,
		EndLong:       r.endLong,
		RiderName:     r.riderName,
		DriverName:    r.driverName,
		DriverVehicle: r.driverVehicle,
	}
}

type rideJSON struct {
	RideID        int64   `json:"rideID"`
	StartLat      float64 `json:"startLat"`
	StartLong     float64 `json:"startLong"`
	EndLat        float64 `json:"endLat"`
	EndLong       float64 `json:"endLong"`
	RiderName     string  `json:"riderName"`
	DriverName    string  `json:"driverName"`
	DriverVehicle string  `json:"driverVehicle"`
	Created       string  `json:"created"`
}

// MarshalJSON renders the ride with the field names clients consume
func (r Ride) MarshalJSON() ([]byte, error) {
	var created string
	if !r.created.IsZero() {
		created = r.created.UTC().Format(CreatedLayout)
	}
	return json.Marshal(rideJSON{
		RideID:        r.id,
		StartLat:      r.startLat,
		StartLong:     r.startLong,
		EndLat:        r.endLat,
		EndLong:       r.endLong,
		RiderName:     r.riderName,
		DriverName:    r.driverName,
		DriverVehicle: r.driverVehicle,
		Created:       created,
	})
}

// UnmarshalJSON restores a ride previously rendered by MarshalJSON
func (r *Ride) UnmarshalJSON(data []byte) error {
	var raw rideJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var created time.Time
	if raw.Created != "" {
		t, err := time.ParseInLocation(CreatedLayout, raw.Created, time.UTC)
		if err != nil {
			return errors.Wrap(err, "failed to parse ride created timestamp")
		}
		created = t
	}

	*r = RestoreRide(raw.RideID, created, RideInput{
		StartLat:      raw.StartLat,
		StartLong:     raw.StartLong,
		EndLat:        raw.EndLat,
		EndLong:       raw.EndLong,
		RiderName:     raw.RiderName,
		DriverName:    raw.DriverName,
		DriverVehicle: raw.DriverVehicle,
	})
	return nil
}
