package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"pickpoint/internal/models"
)

const pgErrUniqueViolation = "23505"

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrStale means the row changed between read and conditional write.
	ErrStale = errors.New("record changed concurrently")

	ErrAlreadyFinalized = models.ErrAlreadyFinalized
	ErrAlreadyPaid      = models.ErrAlreadyPaid
)

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		return ErrDuplicate
	}
	return err
}
