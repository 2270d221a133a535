package transaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

var (
	ErrNotFound       = fmt.Errorf("transaction %w", apperr.ErrNotFound)
	ErrStatusConflict = fmt.Errorf("%w: transaction is not in a state that allows this action", apperr.ErrConflict)
)

// Transaction is one credential request. It carries either PackageID or Items,
// never both.
type Transaction struct {
	ID              uuid.UUID
	StudentID       uuid.UUID
	TotalAmount     int64
	Status          Status
	ScheduledFor    *time.Time
	ScheduledAt     *time.Time
	ReadyAt         *time.Time
	ClaimedAt       *time.Time
	RejectedAt      *time.Time
	ScheduleRemarks string
	ReadyRemarks    string
	ClaimRemarks    string
	RejectRemarks   string
	ProofOfPayment  string
	PaymentDate     *time.Time
	PackageID       *uuid.UUID
	PackageName     string // Loaded via JOIN
	Items           []LineItem
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

func (t *Transaction) IsPackage() bool {
	return t.PackageID != nil
}

// LineItem is one credential of an individual-mode request. UnitPrice is the
// credential price when the line was last written.
type LineItem struct {
	CredentialID   uuid.UUID
	CredentialName string // Loaded via JOIN
	Quantity       int
	UnitPrice      int64
	Subtotal       int64
}

// History is a staff-side transition of one transaction.
type History struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	ActorID       uuid.UUID
	ActorRole     identity.Role
	Status        Status
	Remarks       string
	CreatedAt     time.Time
}

// Event describes a committed lifecycle change.
type Event struct {
	TransactionID uuid.UUID
	StudentID     uuid.UUID
	From          Status
	To            Status
	Actor         identity.Actor
	Remarks       string
	At            time.Time
}
