package auditlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=auditlog
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter ListFilter) ([]*Entry, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type ListFilter struct {
	ActorID *uuid.UUID
	Role    *identity.Role
	Type    *Type
	From    *time.Time
	To      *time.Time
	Limit   int
}

const defaultLimit = 100

// Record appends one entry for the actor.
func (s *Service) Record(ctx context.Context, actor identity.Actor, typ Type, activity string) error {
	return s.repo.Append(ctx, &Entry{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Activity:  activity,
		Type:      typ,
	})
}

// Timeline returns the actor's own entries, newest first. Admins may widen
// the filter to any actor or role.
func (s *Service) Timeline(ctx context.Context, actor identity.Actor, filter ListFilter) ([]*Entry, error) {
	if actor.Role != identity.RoleAdmin {
		if filter.ActorID != nil && *filter.ActorID != actor.ID {
			return nil, apperr.Forbidden("only administrators can read other timelines")
		}

		filter.ActorID = &actor.ID
		filter.Role = nil
	}

	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = defaultLimit
	}

	return s.repo.List(ctx, filter)
}
