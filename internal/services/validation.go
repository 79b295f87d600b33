package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/jjjimenez100/backend-coding-test/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateRideRequest is the raw body of a ride creation. Fields stay
// undecoded until validation so a wrong JSON type is reported per field.
type CreateRideRequest struct {
	StartLat      json.RawMessage `json:"start_lat"`
	StartLong     json.RawMessage `json:"start_long"`
	EndLat        json.RawMessage `json:"end_lat"`
	EndLong       json.RawMessage `json:"end_long"`
	RiderName     json.RawMessage `json:"rider_name"`
	DriverName    json.RawMessage `json:"driver_name"`
	DriverVehicle json.RawMessage `json:"driver_vehicle"`
}

type rideNames struct {
	RiderName     string `json:"rider_name" validate:"required"`
	DriverName    string `json:"driver_name" validate:"required"`
	DriverVehicle string `json:"driver_vehicle" validate:"required"`
}

// toInput checks every field and returns all violations together. Name
// fields are checked before coordinates; the first violation is the one
// clients see as the message.
func (r CreateRideRequest) toInput() (models.RideInput, error) {
	var errs models.ValidationErrors

	names := rideNames{
		RiderName:     decodeString(r.RiderName),
		DriverName:    decodeString(r.DriverName),
		DriverVehicle: decodeString(r.DriverVehicle),
	}
	if err := validate.Struct(names); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return models.RideInput{}, err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, &models.ValidationError{
				Field:  fe.Field(),
				Value:  fe.Value(),
				Reason: fmt.Sprintf("%s must be a non-empty string", fe.Field()),
			})
		}
	}

	coords := [...]struct {
		field string
		raw   json.RawMessage
	}{
		{"start_lat", r.StartLat},
		{"start_long", r.StartLong},
		{"end_lat", r.EndLat},
		{"end_long", r.EndLong},
	}
	var values [len(coords)]float64
	for i, c := range coords {
		v, ok := decodeNumber(c.raw)
		if !ok {
			errs = append(errs, &models.ValidationError{
				Field:  c.field,
				Value:  string(c.raw),
				Reason: fmt.Sprintf("%s must be a numeric value", c.field),
			})
			continue
		}
		values[i] = v
	}

	if len(errs) > 0 {
		return models.RideInput{}, errs
	}

	return models.RideInput{
		StartLat:      values[0],
		StartLong:     values[1],
		EndLat:        values[2],
		EndLong:       values[3],
		RiderName:     names.RiderName,
		DriverName:    names.DriverName,
		DriverVehicle: names.DriverVehicle,
	}, nil
}

// decodeString returns the value of a JSON string, or "" for anything else
func decodeString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// decodeNumber accepts a JSON number or a string holding one. Missing,
// null, NaN and infinite values are rejected.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var v float64
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	} else if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parsePositiveInt parses a query parameter that must be an integer >= 1.
// An empty value yields def.
func parsePositiveInt(field, value string, def int, reason string) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 0, &models.ValidationError{Field: field, Value: value, Reason: reason}
	}
	return n, nil
}
