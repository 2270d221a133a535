package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/registrar/internal/report"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// where renders the filter as a WHERE clause over transactions aliased t.
func where(f report.Filter) (string, []any) {
	clause := " WHERE t.created_at >= $1 AND t.created_at < $2"
	args := []any{f.Start, f.End}
	argIdx := 3

	if f.Status != nil {
		clause += fmt.Sprintf(" AND t.status = $%d", argIdx)

		args = append(args, *f.Status)
		argIdx++
	}

	if f.StaffID != nil {
		clause += fmt.Sprintf(` AND t.student_id IN (
			SELECT a.id FROM accounts a
			JOIN staff_departments sd ON sd.department_id = a.department_id
			WHERE sd.staff_id = $%d)`, argIdx)

		args = append(args, *f.StaffID)
	}

	return clause, args
}

func (s *Store) CountTransactions(ctx context.Context, f report.Filter) (int, error) {
	clause, args := where(f)

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions t`+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}

	return n, nil
}

func (s *Store) CountByStatus(ctx context.Context, f report.Filter) (map[transaction.Status]int, error) {
	clause, args := where(f)

	rows, err := s.db.QueryContext(ctx, `SELECT t.status, COUNT(*) FROM transactions t`+clause+` GROUP BY t.status`, args...)
	if err != nil {
		return nil, fmt.Errorf("counting by status: %w", err)
	}
	defer rows.Close()

	out := make(map[transaction.Status]int)

	for rows.Next() {
		var (
			status string
			n      int
		)

		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}

		out[transaction.Status(status)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	return out, nil
}

// CountByMonth buckets by month boundaries in f.Start's location, not the
// database session's. f.Start must be the first instant of a January.
func (s *Store) CountByMonth(ctx context.Context, f report.Filter) (map[time.Month]map[transaction.Status]int, error) {
	clause, args := where(f)

	query := fmt.Sprintf(`SELECT width_bucket(t.created_at, $%d::timestamptz[]), t.status, COUNT(*) FROM transactions t`,
		len(args)+1) + clause + ` GROUP BY 1, 2`
	args = append(args, timestampArray(MonthStarts(f.Start)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting by month: %w", err)
	}
	defer rows.Close()

	out := make(map[time.Month]map[transaction.Status]int)

	for rows.Next() {
		var (
			month, n int
			status   string
		)

		if err := rows.Scan(&month, &status, &n); err != nil {
			return nil, fmt.Errorf("scanning month count: %w", err)
		}

		if month < 1 || month > 12 {
			continue
		}

		m := time.Month(month)
		if out[m] == nil {
			out[m] = make(map[transaction.Status]int)
		}

		out[m][transaction.Status(status)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating month counts: %w", err)
	}

	return out, nil
}

// MonthStarts returns the first instant of each of the twelve months from
// yearStart on, in yearStart's location.
func MonthStarts(yearStart time.Time) []time.Time {
	out := make([]time.Time, 12)
	for i := range out {
		out[i] = yearStart.AddDate(0, i, 0)
	}

	return out
}

func timestampArray(ts []time.Time) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = `"` + t.Format(time.RFC3339Nano) + `"`
	}

	return "{" + strings.Join(parts, ",") + "}"
}

func (s *Store) CountActivity(ctx context.Context, f report.ActivityFilter) (int, error) {
	query := `
		SELECT COUNT(*) FROM activity_logs
		WHERE activity_type = $1 AND created_at >= $2 AND created_at < $3
	`
	args := []any{f.Type, f.Start, f.End}

	if f.Role != nil {
		query += ` AND actor_role = $4`

		args = append(args, *f.Role)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting activity: %w", err)
	}

	return n, nil
}
