package repositories

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects the write
	ErrDuplicate = errors.New("duplicate record")
	// ErrStateConflict is returned when a conditional update matched no row
	ErrStateConflict = errors.New("record state changed")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey)
}
