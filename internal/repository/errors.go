package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by every lookup of a missing record.
var ErrNotFound = errors.New("repository: not found")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
