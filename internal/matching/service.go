package matching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/importer"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=matching

// Alias maps a pattern found in price-list names to a catalog credential name.
type Alias struct {
	Pattern   string
	Name      string
	CreatedAt time.Time
}

type Repository interface {
	// FindMatch returns the name of the longest pattern contained in raw, or "".
	FindMatch(ctx context.Context, raw string) (string, error)
	CreateAlias(ctx context.Context, a *Alias) error
	ListAliases(ctx context.Context) ([]*Alias, error)
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

// Canonical returns the credential name raw should be imported as.
func (s *Service) Canonical(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	name, err := s.repo.FindMatch(ctx, raw)
	if err != nil {
		return "", err
	}

	if name == "" {
		return raw, nil
	}

	return name, nil
}

// Normalize rewrites the names of rows through the known aliases and reports
// how many were renamed.
func (s *Service) Normalize(ctx context.Context, rows []importer.Row) ([]importer.Row, int, error) {
	out := make([]importer.Row, len(rows))
	renamed := 0

	for i, row := range rows {
		name, err := s.Canonical(ctx, row.Name)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", row.Line, err)
		}

		if name != strings.TrimSpace(row.Name) {
			renamed++
		}

		row.Name = name
		out[i] = row
	}

	return out, renamed, nil
}

// Learn remembers that names containing pattern mean the credential name.
func (s *Service) Learn(ctx context.Context, by identity.Actor, pattern, name string) (*Alias, error) {
	pattern = strings.TrimSpace(pattern)
	name = strings.TrimSpace(name)

	if pattern == "" || name == "" {
		return nil, apperr.Invalid("pattern and name are required")
	}

	a := &Alias{Pattern: pattern, Name: name}
	if err := s.repo.CreateAlias(ctx, a); err != nil {
		return nil, err
	}

	if err := s.log.Record(ctx, by, auditlog.TypeCatalogChanged, fmt.Sprintf("aliased %q to %s", pattern, name)); err != nil {
		slog.Error("failed to record activity", "actor", by.ID, "error", err)
	}

	return a, nil
}

func (s *Service) List(ctx context.Context) ([]*Alias, error) {
	return s.repo.ListAliases(ctx)
}
