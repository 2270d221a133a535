package view

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const dbTimeout = 5 * time.Second

// FormatAmount formats a whole-peso amount with two decimals.
func FormatAmount(pesos int64) string {
	return decimal.NewFromInt(pesos).StringFixed(2)
}

// FormatDate formats t as YYYY-MM-DD, or "-" when unset.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.Format(time.DateOnly)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
