package query

import (
	"context"
	"strings"

	"github.com/jjjimenez100/backend-coding-test/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Operation names reported in StorageError.Op
const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

var (
	ErrEmptyQuery      = errors.New("empty query")
	ErrNilDestination  = errors.New("nil scan destination")
	ErrNoIdentityFound = errors.New("insert returned no identity")
)

// Executor runs parameterized statements against the store. Placeholders are
// written as '?'. Every failure is returned as a *models.StorageError.
type Executor interface {
	// Select scans all rows into dest and returns how many were read.
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) (int64, error)
	// Insert runs a statement ending in a RETURNING clause and returns the generated identity.
	Insert(ctx context.Context, query string, args ...interface{}) (int64, error)
	// Update returns the number of affected rows.
	Update(ctx context.Context, query string, args ...interface{}) (int64, error)
	Delete(ctx context.Context, query string, args ...interface{}) error
}

// GormExecutor implements Executor on a gorm handle. Statements are issued one
// at a time with no surrounding transaction.
type GormExecutor struct {
	db *gorm.DB
}

var _ Executor = (*GormExecutor)(nil)

// NewGormExecutor creates an executor bound to db
func NewGormExecutor(db *gorm.DB) *GormExecutor {
	return &GormExecutor{db: db}
}

// Select implements Executor
func (e *GormExecutor) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) (int64, error) {
	if err := checkQuery(OpSelect, query); err != nil {
		return 0, err
	}
	if dest == nil {
		return 0, storageError(OpSelect, query, ErrNilDestination)
	}

	result := e.db.WithContext(ctx).Raw(query, args...).Scan(dest)
	if result.Error != nil {
		return 0, storageError(OpSelect, query, result.Error)
	}
	return result.RowsAffected, nil
}

// Insert implements Executor
func (e *GormExecutor) Insert(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if err := checkQuery(OpInsert, query); err != nil {
		return 0, err
	}

	var id int64
	result := e.db.WithContext(ctx).Raw(query, args...).Scan(&id)
	if result.Error != nil {
		return 0, storageError(OpInsert, query, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, storageError(OpInsert, query, ErrNoIdentityFound)
	}
	return id, nil
}

// Update implements Executor
func (e *GormExecutor) Update(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if err := checkQuery(OpUpdate, query); err != nil {
		return 0, err
	}

	result := e.db.WithContext(ctx).Exec(query, args...)
	if result.Error != nil {
		return 0, storageError(OpUpdate, query, result.Error)
	}
	return result.RowsAffected, nil
}

// Delete implements Executor
func (e *GormExecutor) Delete(ctx context.Context, query string, args ...interface{}) error {
	if err := checkQuery(OpDelete, query); err != nil {
		return err
	}

	if err := e.db.WithContext(ctx).Exec(query, args...).Error; err != nil {
		return storageError(OpDelete, query, err)
	}
	return nil
}

func checkQuery(op, query string) error {
	if strings.TrimSpace(query) == "" {
		return storageError(op, query, ErrEmptyQuery)
	}
	return nil
}

func storageError(op, query string, err error) error {
	return &models.StorageError{Op: op, Query: query, Err: err}
}
