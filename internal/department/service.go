package department

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=department
type Repository interface {
	CreateDepartment(ctx context.Context, d *Department) error
	GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error)
	ListDepartments(ctx context.Context, includeDeleted bool) ([]*Department, error)
	RenameDepartment(ctx context.Context, id uuid.UUID, name string) error
	SoftDeleteDepartment(ctx context.Context, id uuid.UUID) error
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

func (s *Service) Create(ctx context.Context, by identity.Actor, name string) (*Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("department name is required")
	}

	d := &Department{Name: name}
	if err := s.repo.CreateDepartment(ctx, d); err != nil {
		return nil, err
	}

	s.record(ctx, by, fmt.Sprintf("created department %s", d.Name))

	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.repo.GetDepartment(ctx, id)
}

func (s *Service) List(ctx context.Context, includeDeleted bool) ([]*Department, error) {
	return s.repo.ListDepartments(ctx, includeDeleted)
}

func (s *Service) Rename(ctx context.Context, by identity.Actor, id uuid.UUID, name string) (*Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("department name is required")
	}

	if err := s.repo.RenameDepartment(ctx, id, name); err != nil {
		return nil, err
	}

	s.record(ctx, by, fmt.Sprintf("renamed department %s to %s", id, name))

	return s.repo.GetDepartment(ctx, id)
}

// Delete hides the department from listings. Rows referencing it keep the id.
func (s *Service) Delete(ctx context.Context, by identity.Actor, id uuid.UUID) error {
	if err := s.repo.SoftDeleteDepartment(ctx, id); err != nil {
		return err
	}

	s.record(ctx, by, fmt.Sprintf("deleted department %s", id))

	return nil
}

func (s *Service) record(ctx context.Context, actor identity.Actor, activity string) {
	if err := s.log.Record(ctx, actor, auditlog.TypeDepartmentChanged, activity); err != nil {
		slog.Error("failed to record activity", "actor", actor.ID, "error", err)
	}
}
