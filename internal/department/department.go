package department

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
)

var (
	ErrNotFound  = fmt.Errorf("department %w", apperr.ErrNotFound)
	ErrNameTaken = fmt.Errorf("%w: a department with this name already exists", apperr.ErrConflict)
)

type Department struct {
	ID        uuid.UUID
	Name      string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}
