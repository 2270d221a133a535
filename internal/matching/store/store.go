package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/database"
	"github.com/MrJamesThe3rd/registrar/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindMatch(ctx context.Context, raw string) (string, error) {
	query := `
		SELECT name
		FROM credential_aliases
		WHERE $1 ILIKE '%' || pattern || '%'
		ORDER BY LENGTH(pattern) DESC, created_at DESC
		LIMIT 1
	`

	var name string

	err := s.db.QueryRowContext(ctx, query, raw).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("finding alias: %w", err)
	}

	return name, nil
}

func (s *Store) CreateAlias(ctx context.Context, a *matching.Alias) error {
	query := `
		INSERT INTO credential_aliases (pattern, name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING created_at
	`

	err := s.db.QueryRowContext(ctx, query, a.Pattern, a.Name).Scan(&a.CreatedAt)
	if err != nil {
		if errors.Is(database.Classify(err), apperr.ErrConflict) {
			return apperr.Conflict("alias %q already exists", a.Pattern)
		}

		return fmt.Errorf("creating alias: %w", err)
	}

	return nil
}

func (s *Store) ListAliases(ctx context.Context) ([]*matching.Alias, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pattern, name, created_at FROM credential_aliases ORDER BY pattern ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing aliases: %w", err)
	}
	defer rows.Close()

	var out []*matching.Alias

	for rows.Next() {
		var a matching.Alias
		if err := rows.Scan(&a.Pattern, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning alias: %w", err)
		}

		out = append(out, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating aliases: %w", err)
	}

	return out, nil
}
