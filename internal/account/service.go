package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=account
type Repository interface {
	CreateAccount(ctx context.Context, acc *Account, departmentIDs []uuid.UUID) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	ListAccounts(ctx context.Context, role *identity.Role) ([]*Account, error)
	ReplaceDepartments(ctx context.Context, staffID uuid.UUID, departmentIDs []uuid.UUID) error
	ListDepartments(ctx context.Context, staffID uuid.UUID) ([]uuid.UUID, error)
}

type Recorder interface {
	Record(ctx context.Context, actor identity.Actor, typ auditlog.Type, activity string) error
}

type Service struct {
	repo Repository
	log  Recorder
}

func NewService(repo Repository, log Recorder) *Service {
	return &Service{repo: repo, log: log}
}

const minPasswordLen = 8

type RegisterParams struct {
	Role          identity.Role
	Name          string
	Email         string
	Password      string
	StudentNo     string
	DepartmentID  *uuid.UUID  // required for students
	DepartmentIDs []uuid.UUID // staff assignments
}

// Register creates an account on behalf of an administrator.
func (s *Service) Register(ctx context.Context, by identity.Actor, params RegisterParams) (*Account, error) {
	if _, err := identity.ParseRole(string(params.Role)); err != nil {
		return nil, apperr.Invalid("%v", err)
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Invalid("email is invalid")
	}

	if len(params.Password) < minPasswordLen {
		return nil, apperr.Invalid("password must be at least %d characters", minPasswordLen)
	}

	if params.Role == identity.RoleStudent && params.DepartmentID == nil {
		return nil, apperr.Invalid("students must belong to a department")
	}

	if params.Role != identity.RoleStaff && len(params.DepartmentIDs) > 0 {
		return nil, apperr.Invalid("only staff can be assigned to departments")
	}

	acc := &Account{
		Role:      params.Role,
		Name:      name,
		Email:     email,
		StudentNo: strings.TrimSpace(params.StudentNo),
		IsActive:  true,
	}

	if params.Role == identity.RoleStudent {
		acc.DepartmentID = params.DepartmentID
	}

	if err := acc.SetPassword(params.Password); err != nil {
		return nil, err
	}

	if err := s.repo.CreateAccount(ctx, acc, dedupe(params.DepartmentIDs)); err != nil {
		return nil, err
	}

	s.record(ctx, by, auditlog.TypeAccountChanged, fmt.Sprintf("registered %s account %s", acc.Role, acc.Email))

	return acc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *Service) List(ctx context.Context, role *identity.Role) ([]*Account, error) {
	return s.repo.ListAccounts(ctx, role)
}

// Authenticate checks the email and password pair and records the login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acc, err := s.repo.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, fmt.Errorf("finding account by email: %w", err)
	}

	if !acc.IsActive || !acc.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	s.record(ctx, acc.Actor(), auditlog.TypeLogin, "signed in")

	return acc, nil
}

// AssignDepartments replaces the staff member's department set.
func (s *Service) AssignDepartments(ctx context.Context, by identity.Actor, staffID uuid.UUID, departmentIDs []uuid.UUID) error {
	acc, err := s.repo.GetAccount(ctx, staffID)
	if err != nil {
		return err
	}

	if acc.Role != identity.RoleStaff {
		return apperr.Invalid("only staff can be assigned to departments")
	}

	if err := s.repo.ReplaceDepartments(ctx, staffID, dedupe(departmentIDs)); err != nil {
		return err
	}

	s.record(ctx, by, auditlog.TypeAccountChanged, fmt.Sprintf("assigned %d departments to %s", len(departmentIDs), acc.Email))

	return nil
}

func (s *Service) DepartmentsOf(ctx context.Context, staffID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ListDepartments(ctx, staffID)
}

// record writes an audit entry. Failures are logged, not returned.
func (s *Service) record(ctx context.Context, actor identity.Actor, typ auditlog.Type, activity string) {
	if err := s.log.Record(ctx, actor, typ, activity); err != nil {
		slog.Error("failed to record activity", "actor", actor.ID, "error", err)
	}
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	return out
}
