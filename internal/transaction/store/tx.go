package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	auditstore "github.com/MrJamesThe3rd/registrar/internal/auditlog/store"
	"github.com/MrJamesThe3rd/registrar/internal/database"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

type dbTx struct {
	tx *sql.Tx
}

func (d *dbTx) Commit() error   { return d.tx.Commit() }
func (d *dbTx) Rollback() error { return d.tx.Rollback() }

func (d *dbTx) CoversStudent(ctx context.Context, staffID, studentID uuid.UUID) (bool, error) {
	return coversStudent(ctx, d.tx, staffID, studentID)
}

// Get locks the row until the transaction ends.
func (d *dbTx) Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return getTransaction(ctx, d.tx, id, true)
}

func (d *dbTx) Insert(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (student_id, total_amount, status, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`

	err := d.tx.QueryRowContext(ctx, query, t.StudentID, t.TotalAmount, t.Status).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", database.Classify(err))
	}

	return nil
}

func (d *dbTx) InsertItems(ctx context.Context, id uuid.UUID, items []transaction.LineItem) error {
	query := `
		INSERT INTO transaction_items (transaction_id, credential_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, item := range items {
		_, err := d.tx.ExecContext(ctx, query, id, item.CredentialID, item.Quantity, item.UnitPrice, item.Subtotal)
		if err != nil {
			return fmt.Errorf("adding line item: %w", database.Classify(err))
		}
	}

	return nil
}

func (d *dbTx) LinkPackage(ctx context.Context, id, packageID uuid.UUID) error {
	_, err := d.tx.ExecContext(ctx,
		`INSERT INTO transaction_packages (transaction_id, package_id) VALUES ($1, $2)`, id, packageID)
	if err != nil {
		return fmt.Errorf("linking package: %w", database.Classify(err))
	}

	return nil
}

func (d *dbTx) ReplaceItems(ctx context.Context, id uuid.UUID, items []transaction.LineItem) error {
	if _, err := d.tx.ExecContext(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1`, id); err != nil {
		return fmt.Errorf("clearing line items: %w", err)
	}

	return d.InsertItems(ctx, id, items)
}

// Update writes the supplied fields of a Submitted transaction.
func (d *dbTx) Update(ctx context.Context, id uuid.UUID, changes transaction.Changes) (bool, error) {
	query := `
		UPDATE transactions SET
			total_amount = COALESCE($1, total_amount),
			proof_of_payment = COALESCE($2, proof_of_payment),
			payment_date = COALESCE($3, payment_date),
			updated_at = NOW()
		WHERE id = $4 AND status = $5
	`

	res, err := d.tx.ExecContext(ctx, query,
		changes.TotalAmount,
		changes.ProofOfPayment,
		changes.PaymentDate,
		id,
		transaction.StatusSubmitted,
	)
	if err != nil {
		return false, fmt.Errorf("updating transaction: %w", database.Classify(err))
	}

	return oneRow(res)
}

// UpdateStatus applies change only if the row is still in change.From.
func (d *dbTx) UpdateStatus(ctx context.Context, change transaction.StatusChange) (bool, error) {
	var (
		set  string
		args = []any{change.To, change.At, change.Remarks}
	)

	switch change.To {
	case transaction.StatusScheduled:
		set = `scheduled_at = $2, schedule_remarks = $3, scheduled_for = $6`

		args = append(args, change.ID, change.From, change.ScheduledFor)
	case transaction.StatusReady:
		set = `ready_at = $2, ready_remarks = $3`

		args = append(args, change.ID, change.From)
	case transaction.StatusClaimed:
		set = `claimed_at = $2, claim_remarks = $3`

		args = append(args, change.ID, change.From)
	case transaction.StatusRejected:
		set = `rejected_at = $2, reject_remarks = $3`

		args = append(args, change.ID, change.From)
	case transaction.StatusSubmitted:
		return false, fmt.Errorf("cannot move a transaction back to %s", change.To)
	}

	query := `UPDATE transactions SET status = $1, ` + set + `, updated_at = $2 WHERE id = $4 AND status = $5`

	res, err := d.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating status: %w", err)
	}

	return oneRow(res)
}

// Delete removes the lines and the row. The row delete is guarded by status,
// so a transaction that moved on in the meantime is left alone.
func (d *dbTx) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := d.tx.ExecContext(ctx, `DELETE FROM transaction_items WHERE transaction_id = $1`, id); err != nil {
		return false, fmt.Errorf("deleting line items: %w", err)
	}

	if _, err := d.tx.ExecContext(ctx, `DELETE FROM transaction_packages WHERE transaction_id = $1`, id); err != nil {
		return false, fmt.Errorf("deleting package link: %w", err)
	}

	res, err := d.tx.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = $1 AND status = $2`, id, transaction.StatusSubmitted)
	if err != nil {
		return false, fmt.Errorf("deleting transaction: %w", err)
	}

	return oneRow(res)
}

func (d *dbTx) AddHistory(ctx context.Context, h *transaction.History) error {
	query := `
		INSERT INTO transaction_history (transaction_id, actor_id, actor_role, status, remarks, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err := d.tx.QueryRowContext(ctx, query, h.TransactionID, h.ActorID, h.ActorRole, h.Status, h.Remarks).
		Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("adding history: %w", err)
	}

	return nil
}

func (d *dbTx) AppendLog(ctx context.Context, e *auditlog.Entry) error {
	return auditstore.Insert(ctx, d.tx, e)
}

func oneRow(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}

	return n == 1, nil
}
