package view_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/registrar/cmd/tui/internal/view"
)

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1150.00", view.FormatAmount(1150))
	assert.Equal(t, "0.00", view.FormatAmount(0))
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2024, time.June, 14, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-14", view.FormatDate(&d))
	assert.Equal(t, "-", view.FormatDate(nil))
}
