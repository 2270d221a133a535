package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/catalog"
	"github.com/MrJamesThe3rd/registrar/internal/database"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectCredentialColumns = `id, name, price, is_deleted, created_at, updated_at`

func scanCredential(s scanner) (*catalog.Credential, error) {
	var c catalog.Credential
	if err := s.Scan(&c.ID, &c.Name, &c.Price, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *Store) CreateCredential(ctx context.Context, c *catalog.Credential) error {
	query := `
		INSERT INTO credentials (name, price, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, c.Name, c.Price).Scan(&c.ID, &c.CreatedAt); err != nil {
		return mapWriteErr("creating credential", err)
	}

	return nil
}

func (s *Store) UpdateCredential(ctx context.Context, c *catalog.Credential) error {
	query := `
		UPDATE credentials SET name = $1, price = $2, updated_at = NOW()
		WHERE id = $3 AND NOT is_deleted
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query, c.Name, c.Price, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.ErrCredentialNotFound
		}

		return mapWriteErr("updating credential", err)
	}

	return nil
}

func (s *Store) GetCredential(ctx context.Context, id uuid.UUID) (*catalog.Credential, error) {
	query := `SELECT ` + selectCredentialColumns + ` FROM credentials WHERE id = $1`

	c, err := scanCredential(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrCredentialNotFound
		}

		return nil, fmt.Errorf("getting credential: %w", err)
	}

	return c, nil
}

func (s *Store) ListCredentials(ctx context.Context) ([]*catalog.Credential, error) {
	return s.queryCredentials(ctx, `SELECT `+selectCredentialColumns+` FROM credentials WHERE NOT is_deleted ORDER BY name ASC`)
}

func (s *Store) CredentialsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Credential, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*catalog.Credential{}, nil
	}

	list, err := s.queryCredentials(ctx,
		`SELECT `+selectCredentialColumns+` FROM credentials WHERE id = ANY($1::uuid[]) AND NOT is_deleted`, uuidStrings(ids))
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]*catalog.Credential, len(list))
	for _, c := range list {
		out[c.ID] = c
	}

	return out, nil
}

func (s *Store) queryCredentials(ctx context.Context, query string, args ...any) ([]*catalog.Credential, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer rows.Close()

	var out []*catalog.Credential

	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}

		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credentials: %w", err)
	}

	return out, nil
}

// UpsertCredentials inserts or reprices credentials by name and reports how many
// rows were new.
func (s *Store) UpsertCredentials(ctx context.Context, cs []*catalog.Credential) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO credentials (name, price, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price, is_deleted = FALSE, updated_at = NOW()
		RETURNING id, created_at, (xmax = 0) AS inserted
	`

	created := 0

	for _, c := range cs {
		var inserted bool
		if err := tx.QueryRowContext(ctx, query, c.Name, c.Price).Scan(&c.ID, &c.CreatedAt, &inserted); err != nil {
			return 0, fmt.Errorf("upserting credential %q: %w", c.Name, database.Classify(err))
		}

		if inserted {
			created++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}

	return created, nil
}

func (s *Store) SoftDeleteCredential(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if n == 0 {
		return catalog.ErrCredentialNotFound
	}

	return nil
}

func (s *Store) CreatePackage(ctx context.Context, p *catalog.Package) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO packages (name, description, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at
	`

	if err := tx.QueryRowContext(ctx, query, p.Name, p.Description).Scan(&p.ID, &p.CreatedAt); err != nil {
		return mapWriteErr("creating package", err)
	}

	if err := insertContents(ctx, tx, p); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing package: %w", err)
	}

	return nil
}

func (s *Store) UpdatePackage(ctx context.Context, p *catalog.Package) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		UPDATE packages SET name = $1, description = $2, updated_at = NOW()
		WHERE id = $3 AND NOT is_deleted
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(ctx, query, p.Name, p.Description, p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.ErrPackageNotFound
		}

		return mapWriteErr("updating package", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM package_contents WHERE package_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clearing package contents: %w", err)
	}

	if err := insertContents(ctx, tx, p); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing package: %w", err)
	}

	return nil
}

func (s *Store) GetPackage(ctx context.Context, id uuid.UUID) (*catalog.Package, error) {
	query := `SELECT id, name, description, is_deleted, created_at, updated_at FROM packages WHERE id = $1`

	var p catalog.Package

	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrPackageNotFound
		}

		return nil, fmt.Errorf("getting package: %w", err)
	}

	contents, err := s.contents(ctx, []uuid.UUID{p.ID})
	if err != nil {
		return nil, err
	}

	p.Contents = contents[p.ID]

	return &p, nil
}

func (s *Store) ListPackages(ctx context.Context) ([]*catalog.Package, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, is_deleted, created_at, updated_at
		FROM packages
		WHERE NOT is_deleted
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	defer rows.Close()

	var (
		pkgs []*catalog.Package
		ids  []uuid.UUID
	)

	for rows.Next() {
		var p catalog.Package
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning package: %w", err)
		}

		pkgs = append(pkgs, &p)
		ids = append(ids, p.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating packages: %w", err)
	}

	if len(ids) == 0 {
		return pkgs, nil
	}

	contents, err := s.contents(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, p := range pkgs {
		p.Contents = contents[p.ID]
	}

	return pkgs, nil
}

func (s *Store) DeletePackage(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE packages SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return fmt.Errorf("deleting package: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if n == 0 {
		return catalog.ErrPackageNotFound
	}

	return nil
}

// contents reads package lines joined with current credential prices.
func (s *Store) contents(ctx context.Context, packageIDs []uuid.UUID) (map[uuid.UUID][]catalog.Content, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pc.package_id, c.id, c.name, c.price, pc.quantity
		FROM package_contents pc
		JOIN credentials c ON c.id = pc.credential_id
		WHERE pc.package_id = ANY($1::uuid[])
		ORDER BY c.name ASC`, uuidStrings(packageIDs))
	if err != nil {
		return nil, fmt.Errorf("listing package contents: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]catalog.Content)

	for rows.Next() {
		var (
			pkgID uuid.UUID
			c     catalog.Content
		)

		if err := rows.Scan(&pkgID, &c.CredentialID, &c.CredentialName, &c.UnitPrice, &c.Quantity); err != nil {
			return nil, fmt.Errorf("scanning package content: %w", err)
		}

		out[pkgID] = append(out[pkgID], c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating package contents: %w", err)
	}

	return out, nil
}

func insertContents(ctx context.Context, q database.Querier, p *catalog.Package) error {
	for _, c := range p.Contents {
		_, err := q.ExecContext(ctx,
			`INSERT INTO package_contents (package_id, credential_id, quantity) VALUES ($1, $2, $3)`,
			p.ID, c.CredentialID, c.Quantity)
		if err != nil {
			return fmt.Errorf("adding package content: %w", database.Classify(err))
		}
	}

	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}

	return out
}

func mapWriteErr(op string, err error) error {
	if errors.Is(database.Classify(err), apperr.ErrConflict) {
		return catalog.ErrNameTaken
	}

	return fmt.Errorf("%s: %w", op, err)
}
