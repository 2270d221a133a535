package report

import (
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
)

// Bucket is a calendar window ending at the current instant's period.
type Bucket string

const (
	BucketToday Bucket = "today"
	BucketMonth Bucket = "month"
	BucketYear  Bucket = "year"
)

func ParseBucket(s string) (Bucket, error) {
	switch b := Bucket(s); b {
	case BucketToday, BucketMonth, BucketYear:
		return b, nil
	case "":
		return BucketToday, nil
	}

	return "", fmt.Errorf("%w: unknown bucket %q", apperr.ErrInvalid, s)
}

// Range returns the half-open window [start, end) of the period containing now.
func (b Bucket) Range(now time.Time) (time.Time, time.Time) {
	loc := now.Location()

	switch b {
	case BucketToday:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 1)
	case BucketMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	case BucketYear:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	}

	return now, now
}
