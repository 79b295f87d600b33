package database

import (
	"time"

	"github.com/jjjimenez100/backend-coding-test/internal/metrics"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const startTimeKey = "metrics:start_time"

// RegisterMetricsHooks times every statement issued through Raw/Exec
// (gorm's row and raw callback chains) and records the outcome
func RegisterMetricsHooks(db *gorm.DB, collector *metrics.Metrics) error {
	after := func(tx *gorm.DB) {
		collector.RecordDuration(metrics.StoreQueryLatency, elapsed(tx))
		collector.RecordOutcome(metrics.StoreQueries, tx.Error != nil)
	}

	row := db.Callback().Row()
	if err := row.Before("gorm:row").Register("metrics:before_row", markStart); err != nil {
		return errors.Wrap(err, "failed to register row start hook")
	}
	if err := row.After("gorm:row").Register("metrics:after_row", after); err != nil {
		return errors.Wrap(err, "failed to register row metrics hook")
	}

	raw := db.Callback().Raw()
	if err := raw.Before("gorm:raw").Register("metrics:before_raw", markStart); err != nil {
		return errors.Wrap(err, "failed to register raw start hook")
	}
	if err := raw.After("gorm:raw").Register("metrics:after_raw", after); err != nil {
		return errors.Wrap(err, "failed to register raw metrics hook")
	}

	return nil
}

func markStart(tx *gorm.DB) {
	tx.InstanceSet(startTimeKey, time.Now())
}

func elapsed(tx *gorm.DB) time.Duration {
	if start, ok := tx.InstanceGet(startTimeKey); ok {
		return time.Since(start.(time.Time))
	}
	return 0
}
