package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/database"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	t.id, t.student_id, t.total_amount, t.status,
	t.scheduled_for, t.scheduled_at, t.ready_at, t.claimed_at, t.rejected_at,
	COALESCE(t.schedule_remarks, ''), COALESCE(t.ready_remarks, ''),
	COALESCE(t.claim_remarks, ''), COALESCE(t.reject_remarks, ''),
	COALESCE(t.proof_of_payment, ''), t.payment_date,
	tp.package_id, COALESCE(p.name, ''),
	t.created_at, t.updated_at
`

const fromTransactions = `
	FROM transactions t
	LEFT JOIN transaction_packages tp ON tp.transaction_id = t.id
	LEFT JOIN packages p ON p.id = tp.package_id
`

// scanTransaction expects the columns of selectTransactionColumns, in order.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var (
		t      transaction.Transaction
		status string
	)

	if err := s.Scan(
		&t.ID, &t.StudentID, &t.TotalAmount, &status,
		&t.ScheduledFor, &t.ScheduledAt, &t.ReadyAt, &t.ClaimedAt, &t.RejectedAt,
		&t.ScheduleRemarks, &t.ReadyRemarks, &t.ClaimRemarks, &t.RejectRemarks,
		&t.ProofOfPayment, &t.PaymentDate,
		&t.PackageID, &t.PackageName,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	t.Status = transaction.Status(status)

	return &t, nil
}

func getTransaction(ctx context.Context, q database.Querier, id uuid.UUID, lock bool) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + ` WHERE t.id = $1`
	if lock {
		query += ` FOR UPDATE OF t`
	}

	t, err := scanTransaction(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	items, err := loadItems(ctx, q, []uuid.UUID{t.ID})
	if err != nil {
		return nil, err
	}

	t.Items = items[t.ID]

	return t, nil
}

func loadItems(ctx context.Context, q database.Querier, ids []uuid.UUID) (map[uuid.UUID][]transaction.LineItem, error) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	rows, err := q.QueryContext(ctx, `
		SELECT ti.transaction_id, ti.credential_id, c.name, ti.quantity, ti.unit_price, ti.subtotal
		FROM transaction_items ti
		JOIN credentials c ON c.id = ti.credential_id
		WHERE ti.transaction_id = ANY($1::uuid[])
		ORDER BY c.name ASC`, strIDs)
	if err != nil {
		return nil, fmt.Errorf("listing line items: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]transaction.LineItem)

	for rows.Next() {
		var (
			txID uuid.UUID
			item transaction.LineItem
		)

		if err := rows.Scan(&txID, &item.CredentialID, &item.CredentialName, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("scanning line item: %w", err)
		}

		out[txID] = append(out[txID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating line items: %w", err)
	}

	return out, nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return getTransaction(ctx, s.db, id, false)
}

func (s *Store) List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + fromTransactions + ` WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND t.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.StudentID != nil {
		query += fmt.Sprintf(" AND t.student_id = $%d", argIdx)

		args = append(args, *filter.StudentID)
		argIdx++
	}

	if filter.StaffID != nil {
		query += fmt.Sprintf(` AND t.student_id IN (
			SELECT a.id FROM accounts a
			JOIN staff_departments sd ON sd.department_id = a.department_id
			WHERE sd.staff_id = $%d)`, argIdx)

		args = append(args, *filter.StaffID)
		argIdx++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND t.created_at >= $%d", argIdx)

		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND t.created_at < $%d", argIdx)

		args = append(args, *filter.To)
	}

	query += " ORDER BY t.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var (
		txs []*transaction.Transaction
		ids []uuid.UUID
	)

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, t)
		ids = append(ids, t.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	if len(ids) == 0 {
		return txs, nil
	}

	items, err := loadItems(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	for _, t := range txs {
		t.Items = items[t.ID]
	}

	return txs, nil
}

func (s *Store) History(ctx context.Context, id uuid.UUID) ([]*transaction.History, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, actor_id, actor_role, status, remarks, created_at
		FROM transaction_history
		WHERE transaction_id = $1
		ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var out []*transaction.History

	for rows.Next() {
		var (
			h            transaction.History
			role, status string
		)

		if err := rows.Scan(&h.ID, &h.TransactionID, &h.ActorID, &role, &status, &h.Remarks, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}

		h.ActorRole = identity.Role(role)
		h.Status = transaction.Status(status)
		out = append(out, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}

	return out, nil
}

func (s *Store) CoversStudent(ctx context.Context, staffID, studentID uuid.UUID) (bool, error) {
	return coversStudent(ctx, s.db, staffID, studentID)
}

func coversStudent(ctx context.Context, q database.Querier, staffID, studentID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM accounts a
			JOIN staff_departments sd ON sd.department_id = a.department_id
			WHERE a.id = $1 AND sd.staff_id = $2
		)
	`

	var ok bool
	if err := q.QueryRowContext(ctx, query, studentID, staffID).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking staff departments: %w", err)
	}

	return ok, nil
}

func (s *Store) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &dbTx{tx: tx}, nil
}
