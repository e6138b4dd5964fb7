package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type txKey struct{}

// conn returns the transaction carried by ctx, or db bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTransaction runs fn with a context carrying a transaction. Repository
// calls made with that context join it. Nested calls reuse the outer
// transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// LockResource serializes bookings of one resource until the surrounding
// transaction ends. Only PostgreSQL needs it; SQLite runs on a single
// connection.
func (t *Transactor) LockResource(ctx context.Context, resourceID int) error {
	db := conn(ctx, t.db)
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	key := fmt.Sprintf("appointments:resource:%d", resourceID)
	return db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

// IsOverlapViolation reports whether err comes from the appointments
// exclusion constraint (SQLSTATE 23P01).
func IsOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

// IsDuplicate reports whether err is a unique constraint violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func notFoundAsNil[T any](row *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}
