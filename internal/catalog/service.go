package catalog

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

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=catalog
type Repository interface {
	CreateCredential(ctx context.Context, c *Credential) error
	UpdateCredential(ctx context.Context, c *Credential) error
	GetCredential(ctx context.Context, id uuid.UUID) (*Credential, error)
	ListCredentials(ctx context.Context) ([]*Credential, error)
	// CredentialsByID returns only credentials that are still offered.
	CredentialsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Credential, error)
	UpsertCredentials(ctx context.Context, cs []*Credential) (int, error)
	SoftDeleteCredential(ctx context.Context, id uuid.UUID) error

	CreatePackage(ctx context.Context, p *Package) error
	UpdatePackage(ctx context.Context, p *Package) error
	GetPackage(ctx context.Context, id uuid.UUID) (*Package, error)
	ListPackages(ctx context.Context) ([]*Package, error)
	DeletePackage(ctx context.Context, id uuid.UUID) error
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

type CredentialParams struct {
	Name  string
	Price int64
}

func (p CredentialParams) validate() (CredentialParams, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, apperr.Invalid("credential name is required")
	}

	if p.Price < 0 {
		return p, apperr.Invalid("credential price must not be negative")
	}

	return p, nil
}

func (s *Service) CreateCredential(ctx context.Context, by identity.Actor, params CredentialParams) (*Credential, error) {
	params, err := params.validate()
	if err != nil {
		return nil, err
	}

	c := &Credential{Name: params.Name, Price: params.Price}
	if err := s.repo.CreateCredential(ctx, c); err != nil {
		return nil, err
	}

	s.record(ctx, by, fmt.Sprintf("added credential %s at %d", c.Name, c.Price))

	return c, nil
}

// UpdateCredential changes name and price. Stored transaction totals keep the
// price they were computed with.
func (s *Service) UpdateCredential(ctx context.Context, by identity.Actor, id uuid.UUID, params CredentialParams) (*Credential, error) {
	params, err := params.validate()
	if err != nil {
		return nil, err
	}

	c := &Credential{ID: id, Name: params.Name, Price: params.Price}
	if err := s.repo.UpdateCredential(ctx, c); err != nil {
		return nil, err
	}

	s.record(ctx, by, fmt.Sprintf("updated credential %s to %d", c.Name, c.Price))

	return c, nil
}

func (s *Service) GetCredential(ctx context.Context, id uuid.UUID) (*Credential, error) {
	return s.repo.GetCredential(ctx, id)
}

func (s *Service) ListCredentials(ctx context.Context) ([]*Credential, error) {
	return s.repo.ListCredentials(ctx)
}

// DeleteCredential stops offering a credential. Existing line items and
// package contents keep referring to it.
func (s *Service) DeleteCredential(ctx context.Context, by identity.Actor, id uuid.UUID) error {
	if err := s.repo.SoftDeleteCredential(ctx, id); err != nil {
		return err
	}

	s.record(ctx, by, fmt.Sprintf("deleted credential %s", id))

	return nil
}

type ImportResult struct {
	Created int
	Updated int
}

// ImportCredentials upserts credentials by name in one unit.
func (s *Service) ImportCredentials(ctx context.Context, by identity.Actor, rows []CredentialParams) (*ImportResult, error) {
	if len(rows) == 0 {
		return nil, apperr.Invalid("no credentials to import")
	}

	seen := make(map[string]bool, len(rows))
	cs := make([]*Credential, 0, len(rows))

	for i, row := range rows {
		row, err := row.validate()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		key := strings.ToLower(row.Name)
		if seen[key] {
			return nil, apperr.Invalid("row %d: duplicate credential %q", i+1, row.Name)
		}

		seen[key] = true

		cs = append(cs, &Credential{Name: row.Name, Price: row.Price})
	}

	created, err := s.repo.UpsertCredentials(ctx, cs)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Created: created, Updated: len(cs) - created}
	s.record(ctx, by, fmt.Sprintf("imported credentials: %d created, %d updated", res.Created, res.Updated))

	return res, nil
}

// CredentialPrices returns the current price of each id. Unknown ids fail.
func (s *Service) CredentialPrices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Credential, error) {
	found, err := s.repo.CredentialsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, id)
		}
	}

	return found, nil
}

type ContentParams struct {
	CredentialID uuid.UUID
	Quantity     int
}

type PackageParams struct {
	Name        string
	Description string
	Contents    []ContentParams
}

func (s *Service) CreatePackage(ctx context.Context, by identity.Actor, params PackageParams) (*Package, error) {
	p, err := s.buildPackage(ctx, params)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreatePackage(ctx, p); err != nil {
		return nil, err
	}

	s.record(ctx, by, fmt.Sprintf("created package %s", p.Name))

	return p, nil
}

// UpdatePackage replaces name, description and contents together.
func (s *Service) UpdatePackage(ctx context.Context, by identity.Actor, id uuid.UUID, params PackageParams) (*Package, error) {
	p, err := s.buildPackage(ctx, params)
	if err != nil {
		return nil, err
	}

	p.ID = id
	if err := s.repo.UpdatePackage(ctx, p); err != nil {
		return nil, err
	}

	s.record(ctx, by, fmt.Sprintf("updated package %s", p.Name))

	return p, nil
}

func (s *Service) GetPackage(ctx context.Context, id uuid.UUID) (*Package, error) {
	return s.repo.GetPackage(ctx, id)
}

func (s *Service) ListPackages(ctx context.Context) ([]*Package, error) {
	return s.repo.ListPackages(ctx)
}

// DeletePackage retires the definition. Transactions that reference it keep
// their link and stored total.
func (s *Service) DeletePackage(ctx context.Context, by identity.Actor, id uuid.UUID) error {
	if err := s.repo.DeletePackage(ctx, id); err != nil {
		return err
	}

	s.record(ctx, by, fmt.Sprintf("deleted package %s", id))

	return nil
}

func (s *Service) buildPackage(ctx context.Context, params PackageParams) (*Package, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, apperr.Invalid("package name is required")
	}

	if len(params.Contents) == 0 {
		return nil, apperr.Invalid("package must contain at least one credential")
	}

	ids := make([]uuid.UUID, 0, len(params.Contents))

	for _, c := range params.Contents {
		if c.Quantity <= 0 {
			return nil, apperr.Invalid("quantity must be positive")
		}

		for _, id := range ids {
			if id == c.CredentialID {
				return nil, apperr.Invalid("credential %s listed twice", id)
			}
		}

		ids = append(ids, c.CredentialID)
	}

	creds, err := s.repo.CredentialsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	p := &Package{
		Name:        name,
		Description: strings.TrimSpace(params.Description),
		Contents:    make([]Content, 0, len(params.Contents)),
	}

	for _, c := range params.Contents {
		cred, ok := creds[c.CredentialID]
		if !ok {
			return nil, apperr.Invalid("unknown credential %s", c.CredentialID)
		}

		p.Contents = append(p.Contents, Content{
			CredentialID:   cred.ID,
			CredentialName: cred.Name,
			UnitPrice:      cred.Price,
			Quantity:       c.Quantity,
		})
	}

	return p, nil
}

func (s *Service) record(ctx context.Context, actor identity.Actor, activity string) {
	if err := s.log.Record(ctx, actor, auditlog.TypeCatalogChanged, activity); err != nil {
		slog.Error("failed to record activity", "actor", actor.ID, "error", err)
	}
}
