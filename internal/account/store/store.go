package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/account"
	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/database"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
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

const selectAccountColumns = `
	id, role, name, email, COALESCE(student_no, ''), department_id, password_hash,
	is_active, created_at, updated_at
`

func scanAccount(s scanner) (*account.Account, error) {
	var (
		acc  account.Account
		role string
	)

	if err := s.Scan(
		&acc.ID, &role, &acc.Name, &acc.Email, &acc.StudentNo, &acc.DepartmentID, &acc.PasswordHash,
		&acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	acc.Role = identity.Role(role)

	return &acc, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc *account.Account, departmentIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO accounts (role, name, email, password_hash, student_no, department_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NOW())
		RETURNING id, created_at
	`

	err = tx.QueryRowContext(ctx, query,
		acc.Role,
		acc.Name,
		acc.Email,
		acc.PasswordHash,
		acc.StudentNo,
		acc.DepartmentID,
		acc.IsActive,
	).Scan(&acc.ID, &acc.CreatedAt)
	if err != nil {
		err = database.Classify(err)
		if errors.Is(err, apperr.ErrConflict) {
			return account.ErrEmailTaken
		}

		return fmt.Errorf("creating account: %w", err)
	}

	if err := insertDepartments(ctx, tx, acc.ID, departmentIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing account: %w", err)
	}

	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return acc, nil
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts WHERE email = $1`

	acc, err := scanAccount(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("getting account by email: %w", err)
	}

	return acc, nil
}

func (s *Store) ListAccounts(ctx context.Context, role *identity.Role) ([]*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + ` FROM accounts`

	var args []any

	if role != nil {
		query += ` WHERE role = $1`

		args = append(args, *role)
	}

	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account

	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, nil
}

func (s *Store) ReplaceDepartments(ctx context.Context, staffID uuid.UUID, departmentIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM staff_departments WHERE staff_id = $1`, staffID); err != nil {
		return fmt.Errorf("clearing staff departments: %w", err)
	}

	if err := insertDepartments(ctx, tx, staffID, departmentIDs); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET updated_at = NOW() WHERE id = $1`, staffID); err != nil {
		return fmt.Errorf("touching account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing staff departments: %w", err)
	}

	return nil
}

func (s *Store) ListDepartments(ctx context.Context, staffID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT department_id FROM staff_departments WHERE staff_id = $1 ORDER BY department_id`, staffID)
	if err != nil {
		return nil, fmt.Errorf("listing staff departments: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning staff department: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating staff departments: %w", err)
	}

	return ids, nil
}

func insertDepartments(ctx context.Context, q database.Querier, staffID uuid.UUID, departmentIDs []uuid.UUID) error {
	for _, id := range departmentIDs {
		_, err := q.ExecContext(ctx,
			`INSERT INTO staff_departments (staff_id, department_id) VALUES ($1, $2)`, staffID, id)
		if err != nil {
			return fmt.Errorf("assigning department %s: %w", id, database.Classify(err))
		}
	}

	return nil
}
