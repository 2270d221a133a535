package account

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

var (
	ErrNotFound           = fmt.Errorf("account %w", apperr.ErrNotFound)
	ErrEmailTaken         = fmt.Errorf("%w: an account with this email already exists", apperr.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)
)

// Account is any principal that can sign in: students, staff, administrators
// and student assistants.
type Account struct {
	ID           uuid.UUID
	Role         identity.Role
	Name         string
	Email        string
	StudentNo    string
	DepartmentID *uuid.UUID // students only
	PasswordHash []byte
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	a.PasswordHash = hash

	return nil
}

func (a *Account) CheckPassword(pwd string) bool {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd)) == nil
}

func (a *Account) Actor() identity.Actor {
	return identity.Actor{ID: a.ID, Role: a.Role}
}
