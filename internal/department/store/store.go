package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/database"
	"github.com/MrJamesThe3rd/registrar/internal/department"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateDepartment(ctx context.Context, d *department.Department) error {
	query := `
		INSERT INTO departments (name, created_at)
		VALUES ($1, NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, d.Name).Scan(&d.ID, &d.CreatedAt); err != nil {
		return mapWriteErr("creating department", err)
	}

	return nil
}

func (s *Store) GetDepartment(ctx context.Context, id uuid.UUID) (*department.Department, error) {
	query := `SELECT id, name, is_deleted, created_at, updated_at FROM departments WHERE id = $1`

	var d department.Department

	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&d.ID, &d.Name, &d.IsDeleted, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, department.ErrNotFound
		}

		return nil, fmt.Errorf("getting department: %w", err)
	}

	return &d, nil
}

func (s *Store) ListDepartments(ctx context.Context, includeDeleted bool) ([]*department.Department, error) {
	query := `SELECT id, name, is_deleted, created_at, updated_at FROM departments`
	if !includeDeleted {
		query += ` WHERE NOT is_deleted`
	}

	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing departments: %w", err)
	}
	defer rows.Close()

	var out []*department.Department

	for rows.Next() {
		var d department.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.IsDeleted, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning department: %w", err)
		}

		out = append(out, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating departments: %w", err)
	}

	return out, nil
}

func (s *Store) RenameDepartment(ctx context.Context, id uuid.UUID, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE departments SET name = $1, updated_at = NOW() WHERE id = $2 AND NOT is_deleted`, name, id)
	if err != nil {
		return mapWriteErr("renaming department", err)
	}

	return expectOne(res)
}

func (s *Store) SoftDeleteDepartment(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE departments SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_deleted`, id)
	if err != nil {
		return fmt.Errorf("deleting department: %w", err)
	}

	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if n == 0 {
		return department.ErrNotFound
	}

	return nil
}

func mapWriteErr(op string, err error) error {
	if errors.Is(database.Classify(err), apperr.ErrConflict) {
		return department.ErrNameTaken
	}

	return fmt.Errorf("%s: %w", op, err)
}
