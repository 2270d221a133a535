package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=report
type Repository interface {
	CountTransactions(ctx context.Context, f Filter) (int, error)
	CountByStatus(ctx context.Context, f Filter) (map[transaction.Status]int, error)
	CountByMonth(ctx context.Context, f Filter) (map[time.Month]map[transaction.Status]int, error)
	CountActivity(ctx context.Context, f ActivityFilter) (int, error)
}

// Cache holds computed summaries for a short while.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}

type Filter struct {
	Status  *transaction.Status
	Start   time.Time
	End     time.Time
	StaffID *uuid.UUID // requesters in the staff member's departments
}

type ActivityFilter struct {
	Type  auditlog.Type
	Role  *identity.Role
	Start time.Time
	End   time.Time
}

type Service struct {
	repo  Repository
	cache Cache
	now   func() time.Time
}

// NewService builds the reporting service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

type CountQuery struct {
	Type    string
	Bucket  Bucket
	StaffID *uuid.UUID
}

// CountTransactions counts requests created in the bucket. An unknown type is
// rejected without touching the database.
func (s *Service) CountTransactions(ctx context.Context, q CountQuery) (int, error) {
	tag, err := ParseTag(q.Type)
	if err != nil {
		return 0, err
	}

	start, end := q.Bucket.Range(s.now())

	return s.repo.CountTransactions(ctx, Filter{
		Status:  tag.Status(),
		Start:   start,
		End:     end,
		StaffID: q.StaffID,
	})
}

type ActivityQuery struct {
	Type   string
	Role   *identity.Role
	Bucket Bucket
}

func (s *Service) CountActivity(ctx context.Context, q ActivityQuery) (int, error) {
	typ, ok := auditlog.ParseType(q.Type)
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrInvalidType, q.Type)
	}

	start, end := q.Bucket.Range(s.now())

	return s.repo.CountActivity(ctx, ActivityFilter{Type: typ, Role: q.Role, Start: start, End: end})
}

// Summary returns every status count of the bucket from one grouped query.
func (s *Service) Summary(ctx context.Context, bucket Bucket, staffID *uuid.UUID) (*Summary, error) {
	start, end := bucket.Range(s.now())
	key := summaryKey(bucket, start, staffID)

	var cached Summary
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	counts, err := s.repo.CountByStatus(ctx, Filter{Start: start, End: end, StaffID: staffID})
	if err != nil {
		return nil, err
	}

	sum := &Summary{Bucket: bucket, Start: start, End: end, Counts: fill(counts)}
	for _, n := range sum.Counts {
		sum.Total += n
	}

	s.cacheSet(ctx, key, sum)

	return sum, nil
}

// Monthly returns per-month status counts of year, January first.
func (s *Service) Monthly(ctx context.Context, year int, staffID *uuid.UUID) ([]MonthCount, error) {
	if year < 2000 || year > 9999 {
		return nil, apperr.Invalid("year %d out of range", year)
	}

	loc := s.now().Location()
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)

	byMonth, err := s.repo.CountByMonth(ctx, Filter{Start: start, End: start.AddDate(1, 0, 0), StaffID: staffID})
	if err != nil {
		return nil, err
	}

	out := make([]MonthCount, 0, 12)

	for m := time.January; m <= time.December; m++ {
		mc := MonthCount{Month: m, Counts: fill(byMonth[m])}
		for _, n := range mc.Counts {
			mc.Total += n
		}

		out = append(out, mc)
	}

	return out, nil
}

func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}

	found, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		slog.Warn("report cache read failed", "key", key, "error", err)
		return false
	}

	return found
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, key, v); err != nil {
		slog.Warn("report cache write failed", "key", key, "error", err)
	}
}

func summaryKey(bucket Bucket, start time.Time, staffID *uuid.UUID) string {
	scope := "all"
	if staffID != nil {
		scope = staffID.String()
	}

	return fmt.Sprintf("report:summary:%s:%s:%s", bucket, start.Format(time.DateOnly), scope)
}

// fill returns counts with a zero entry for every status that had none.
func fill(counts map[transaction.Status]int) map[transaction.Status]int {
	out := make(map[transaction.Status]int, len(transaction.Statuses))
	for _, st := range transaction.Statuses {
		out[st] = counts[st]
	}

	return out
}
