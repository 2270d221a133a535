package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/database"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const insertQuery = `
	INSERT INTO activity_logs (actor_id, actor_role, activity, activity_type, created_at)
	VALUES ($1, $2, $3, $4, NOW())
	RETURNING id, created_at
`

// Insert writes e through q, so callers can append inside their own db transaction.
func Insert(ctx context.Context, q database.Querier, e *auditlog.Entry) error {
	err := q.QueryRowContext(ctx, insertQuery, e.ActorID, e.ActorRole, e.Activity, e.Type).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending activity log: %w", err)
	}

	return nil
}

func (s *Store) Append(ctx context.Context, e *auditlog.Entry) error {
	return Insert(ctx, s.db, e)
}

func (s *Store) List(ctx context.Context, filter auditlog.ListFilter) ([]*auditlog.Entry, error) {
	query := `
		SELECT id, actor_id, actor_role, activity, activity_type, created_at
		FROM activity_logs
		WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.ActorID != nil {
		query += fmt.Sprintf(" AND actor_id = $%d", argIdx)

		args = append(args, *filter.ActorID)
		argIdx++
	}

	if filter.Role != nil {
		query += fmt.Sprintf(" AND actor_role = $%d", argIdx)

		args = append(args, *filter.Role)
		argIdx++
	}

	if filter.Type != nil {
		query += fmt.Sprintf(" AND activity_type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)

		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND created_at < $%d", argIdx)

		args = append(args, *filter.To)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIdx)
	args = append(args, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activity logs: %w", err)
	}
	defer rows.Close()

	var entries []*auditlog.Entry

	for rows.Next() {
		var (
			e    auditlog.Entry
			role string
			typ  string
		)

		if err := rows.Scan(&e.ID, &e.ActorID, &role, &e.Activity, &typ, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity log: %w", err)
		}

		e.ActorRole = identity.Role(role)
		e.Type = auditlog.Type(typ)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity logs: %w", err)
	}

	return entries, nil
}
