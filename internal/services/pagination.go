package services

import (
	"errors"
	"time"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ErrInvalidDateRange is returned when a listing's start is after its end.
var ErrInvalidDateRange = errors.New("start_date must not be after end_date")

// pageWindow clamps page and limit and derives the row offset. A non-positive
// limit takes def; anything above maxLimit is capped.
func pageWindow(page, limit, def, maxLimit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, (page - 1) * limit
}

func checkRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return ErrInvalidDateRange
	}
	return nil
}
