package auditlog

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

// Type tags the kind of activity an entry records.
type Type string

const (
	TypeTransactionSubmitted Type = "transaction_submitted"
	TypeTransactionEdited    Type = "transaction_edited"
	TypeTransactionDeleted   Type = "transaction_deleted"
	TypeTransactionScheduled Type = "transaction_scheduled"
	TypeTransactionReady     Type = "transaction_ready"
	TypeTransactionClaimed   Type = "transaction_claimed"
	TypeTransactionRejected  Type = "transaction_rejected"
	TypeDepartmentChanged    Type = "department_changed"
	TypeCatalogChanged       Type = "catalog_changed"
	TypeAccountChanged       Type = "account_changed"
	TypeLogin                Type = "login"
)

var types = []Type{
	TypeTransactionSubmitted,
	TypeTransactionEdited,
	TypeTransactionDeleted,
	TypeTransactionScheduled,
	TypeTransactionReady,
	TypeTransactionClaimed,
	TypeTransactionRejected,
	TypeDepartmentChanged,
	TypeCatalogChanged,
	TypeAccountChanged,
	TypeLogin,
}

// ParseType validates s against the known activity types.
func ParseType(s string) (Type, bool) {
	for _, t := range types {
		if string(t) == s {
			return t, true
		}
	}

	return "", false
}

// Entry is one append-only activity log row.
type Entry struct {
	ID        uuid.UUID
	ActorID   uuid.UUID
	ActorRole identity.Role
	Activity  string
	Type      Type
	CreatedAt time.Time
}
