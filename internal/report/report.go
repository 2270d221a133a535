package report

import (
	"fmt"
	"time"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

var ErrInvalidType = fmt.Errorf("%w: invalid type", apperr.ErrInvalid)

// Tag selects which transactions a count covers: one status, or all of them.
type Tag string

const TagAll Tag = "All"

func ParseTag(s string) (Tag, error) {
	if Tag(s) == TagAll {
		return TagAll, nil
	}

	if _, err := transaction.ParseStatus(s); err != nil {
		return "", fmt.Errorf("%w %q", ErrInvalidType, s)
	}

	return Tag(s), nil
}

// Status returns the status the tag filters on, or nil for TagAll.
func (t Tag) Status() *transaction.Status {
	if t == TagAll {
		return nil
	}

	s := transaction.Status(t)

	return &s
}

type Summary struct {
	Bucket Bucket                     `json:"bucket"`
	Start  time.Time                  `json:"start"`
	End    time.Time                  `json:"end"`
	Counts map[transaction.Status]int `json:"counts"`
	Total  int                        `json:"total"`
}

type MonthCount struct {
	Month  time.Month                 `json:"month"`
	Counts map[transaction.Status]int `json:"counts"`
	Total  int                        `json:"total"`
}
