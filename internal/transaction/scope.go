package transaction

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

type departmentChecker interface {
	CoversStudent(ctx context.Context, staffID, studentID uuid.UUID) (bool, error)
}

// inDepartments limits staff to requests of students in their departments.
// Admins and assistants are not scoped.
func inDepartments(ctx context.Context, c departmentChecker, actor identity.Actor, t *Transaction) error {
	if !actor.Is(identity.RoleStaff) {
		return nil
	}

	ok, err := c.CoversStudent(ctx, actor.ID, t.StudentID)
	if err != nil {
		return err
	}

	if !ok {
		return apperr.Forbidden("request is outside your departments")
	}

	return nil
}
