package report_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/report"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

var now = time.Date(2024, time.June, 12, 10, 30, 0, 0, time.UTC)

func newService(t *testing.T, withCache bool) (*report.Service, *report.MockRepository, *report.MockCache) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := report.NewMockRepository(ctrl)

	var (
		cache *report.MockCache
		svc   *report.Service
	)

	if withCache {
		cache = report.NewMockCache(ctrl)
		svc = report.NewService(repo, cache)
	} else {
		svc = report.NewService(repo, nil)
	}

	svc.SetClock(func() time.Time { return now })

	return svc, repo, cache
}

func TestService_CountTransactions(t *testing.T) {
	staffID := uuid.New()
	scheduled := transaction.StatusScheduled
	dayStart := time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC)

	type testCase struct {
		name      string
		query     report.CountQuery
		setupMock func(repo *report.MockRepository)
		want      int
		wantErr   error
	}

	tests := []testCase{
		{
			name:  "All",
			query: report.CountQuery{Type: "All", Bucket: report.BucketToday},
			setupMock: func(repo *report.MockRepository) {
				repo.EXPECT().
					CountTransactions(gomock.Any(), report.Filter{Start: dayStart, End: dayStart.AddDate(0, 0, 1)}).
					Return(7, nil)
			},
			want: 7,
		},
		{
			name:  "ScheduledForStaff",
			query: report.CountQuery{Type: "Scheduled", Bucket: report.BucketToday, StaffID: &staffID},
			setupMock: func(repo *report.MockRepository) {
				repo.EXPECT().
					CountTransactions(gomock.Any(), report.Filter{
						Status:  &scheduled,
						Start:   dayStart,
						End:     dayStart.AddDate(0, 0, 1),
						StaffID: &staffID,
					}).
					Return(2, nil)
			},
			want: 2,
		},
		{
			name:    "UnknownType",
			query:   report.CountQuery{Type: "Pending", Bucket: report.BucketToday},
			wantErr: report.ErrInvalidType,
		},
		{
			name:  "RepoError",
			query: report.CountQuery{Type: "All", Bucket: report.BucketMonth},
			setupMock: func(repo *report.MockRepository) {
				repo.EXPECT().CountTransactions(gomock.Any(), gomock.Any()).Return(0, errors.New("db down"))
			},
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newService(t, false)

			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			n, err := svc.CountTransactions(context.Background(), tt.query)

			if tt.wantErr != nil {
				require.Error(t, err)

				if errors.Is(tt.wantErr, apperr.ErrInvalid) {
					assert.ErrorIs(t, err, apperr.ErrInvalid)
				}

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestService_CountActivity(t *testing.T) {
	svc, repo, _ := newService(t, false)
	staff := identity.RoleStaff
	monthStart := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().
		CountActivity(gomock.Any(), report.ActivityFilter{
			Type:  auditlog.TypeTransactionClaimed,
			Role:  &staff,
			Start: monthStart,
			End:   monthStart.AddDate(0, 1, 0),
		}).
		Return(4, nil)

	n, err := svc.CountActivity(context.Background(), report.ActivityQuery{
		Type:   string(auditlog.TypeTransactionClaimed),
		Role:   &staff,
		Bucket: report.BucketMonth,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = svc.CountActivity(context.Background(), report.ActivityQuery{Type: "coffee_break"})
	assert.ErrorIs(t, err, report.ErrInvalidType)
}

func TestService_Summary(t *testing.T) {
	counts := map[transaction.Status]int{
		transaction.StatusSubmitted: 3,
		transaction.StatusClaimed:   1,
	}

	t.Run("NoCache", func(t *testing.T) {
		svc, repo, _ := newService(t, false)
		repo.EXPECT().CountByStatus(gomock.Any(), gomock.Any()).Return(counts, nil)

		sum, err := svc.Summary(context.Background(), report.BucketToday, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, sum.Total)
		assert.Len(t, sum.Counts, len(transaction.Statuses))
		assert.Equal(t, 0, sum.Counts[transaction.StatusRejected])
	})

	t.Run("CacheMissStores", func(t *testing.T) {
		svc, repo, cache := newService(t, true)
		cache.EXPECT().Get(gomock.Any(), "report:summary:today:2024-06-12:all", gomock.Any()).Return(false, nil)
		repo.EXPECT().CountByStatus(gomock.Any(), gomock.Any()).Return(counts, nil)
		cache.EXPECT().Set(gomock.Any(), "report:summary:today:2024-06-12:all", gomock.Any()).Return(nil)

		sum, err := svc.Summary(context.Background(), report.BucketToday, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, sum.Counts[transaction.StatusSubmitted])
	})

	t.Run("CacheHit", func(t *testing.T) {
		svc, _, cache := newService(t, true)
		cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, dst any) (bool, error) {
				*dst.(*report.Summary) = report.Summary{Bucket: report.BucketToday, Total: 9}
				return true, nil
			})

		sum, err := svc.Summary(context.Background(), report.BucketToday, nil)
		require.NoError(t, err)
		assert.Equal(t, 9, sum.Total)
	})

	t.Run("CacheErrorFallsBack", func(t *testing.T) {
		svc, repo, cache := newService(t, true)
		cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("connection refused"))
		repo.EXPECT().CountByStatus(gomock.Any(), gomock.Any()).Return(counts, nil)
		cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

		sum, err := svc.Summary(context.Background(), report.BucketToday, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, sum.Total)
	})
}

func TestService_Monthly(t *testing.T) {
	svc, repo, _ := newService(t, false)
	yearStart := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	repo.EXPECT().
		CountByMonth(gomock.Any(), report.Filter{Start: yearStart, End: yearStart.AddDate(1, 0, 0)}).
		Return(map[time.Month]map[transaction.Status]int{
			time.March: {transaction.StatusClaimed: 5},
		}, nil)

	months, err := svc.Monthly(context.Background(), 2024, nil)
	require.NoError(t, err)
	require.Len(t, months, 12)
	assert.Equal(t, time.January, months[0].Month)
	assert.Equal(t, 5, months[2].Total)
	assert.Equal(t, 0, months[11].Total)

	_, err = svc.Monthly(context.Background(), 12, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}
