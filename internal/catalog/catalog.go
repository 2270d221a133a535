package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
)

var (
	ErrCredentialNotFound = fmt.Errorf("credential %w", apperr.ErrNotFound)
	ErrPackageNotFound    = fmt.Errorf("package %w", apperr.ErrNotFound)
	ErrNameTaken          = fmt.Errorf("%w: name already in use", apperr.ErrConflict)
)

// Credential is a document students can request, priced in whole currency units.
type Credential struct {
	ID        uuid.UUID
	Name      string
	Price     int64
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Content is one credential line of a package. UnitPrice is the credential's
// current price, read alongside the package.
type Content struct {
	CredentialID   uuid.UUID
	CredentialName string
	UnitPrice      int64
	Quantity       int
}

type Package struct {
	ID          uuid.UUID
	Name        string
	Description string
	Contents    []Content
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Price is the sum of quantity times current unit price over the contents.
func (p *Package) Price() int64 {
	var total int64
	for _, c := range p.Contents {
		total += int64(c.Quantity) * c.UnitPrice
	}

	return total
}
