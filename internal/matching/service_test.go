package matching_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/importer"
	"github.com/MrJamesThe3rd/registrar/internal/matching"
)

var admin = identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin}

func TestService_Canonical(t *testing.T) {
	type testCase struct {
		name      string
		raw       string
		setupMock func(repo *matching.MockRepository)
		want      string
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "AliasFound",
			raw:  "TOR (2 pages)",
			setupMock: func(repo *matching.MockRepository) {
				repo.EXPECT().FindMatch(gomock.Any(), "TOR (2 pages)").Return("Transcript of Records", nil)
			},
			want: "Transcript of Records",
		},
		{
			name: "NoAliasKeepsTrimmedName",
			raw:  "  Diploma ",
			setupMock: func(repo *matching.MockRepository) {
				repo.EXPECT().FindMatch(gomock.Any(), "Diploma").Return("", nil)
			},
			want: "Diploma",
		},
		{
			name: "RepoError",
			raw:  "Diploma",
			setupMock: func(repo *matching.MockRepository) {
				repo.EXPECT().FindMatch(gomock.Any(), gomock.Any()).Return("", errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := matching.NewMockRepository(ctrl)
			tt.setupMock(repo)

			got, err := matching.NewService(repo, matching.NewMockRecorder(ctrl)).Canonical(context.Background(), tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Normalize(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := matching.NewMockRepository(ctrl)
	repo.EXPECT().FindMatch(gomock.Any(), "TOR").Return("Transcript of Records", nil)
	repo.EXPECT().FindMatch(gomock.Any(), "Diploma").Return("", nil)

	rows := []importer.Row{
		{Line: 2, Name: "TOR", Price: 150},
		{Line: 3, Name: "Diploma", Price: 300},
	}

	got, renamed, err := matching.NewService(repo, nil).Normalize(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 1, renamed)
	assert.Equal(t, []importer.Row{
		{Line: 2, Name: "Transcript of Records", Price: 150},
		{Line: 3, Name: "Diploma", Price: 300},
	}, got)
	assert.Equal(t, "TOR", rows[0].Name)
}

func TestService_Learn(t *testing.T) {
	type testCase struct {
		name      string
		pattern   string
		target    string
		setupMock func(repo *matching.MockRepository, rec *matching.MockRecorder)
		wantErr   error
	}

	tests := []testCase{
		{
			name:    "Success",
			pattern: " TOR ",
			target:  "Transcript of Records",
			setupMock: func(repo *matching.MockRepository, rec *matching.MockRecorder) {
				repo.EXPECT().
					CreateAlias(gomock.Any(), &matching.Alias{Pattern: "TOR", Name: "Transcript of Records"}).
					Return(nil)
				rec.EXPECT().Record(gomock.Any(), admin, auditlog.TypeCatalogChanged, gomock.Any()).Return(nil)
			},
		},
		{
			name:    "BlankPattern",
			pattern: "  ",
			target:  "Diploma",
			wantErr: apperr.ErrInvalid,
		},
		{
			name:    "Duplicate",
			pattern: "TOR",
			target:  "Transcript of Records",
			setupMock: func(repo *matching.MockRepository, _ *matching.MockRecorder) {
				repo.EXPECT().CreateAlias(gomock.Any(), gomock.Any()).Return(apperr.Conflict("alias exists"))
			},
			wantErr: apperr.ErrConflict,
		},
		{
			name:    "AuditFailureIgnored",
			pattern: "TOR",
			target:  "Transcript of Records",
			setupMock: func(repo *matching.MockRepository, rec *matching.MockRecorder) {
				repo.EXPECT().CreateAlias(gomock.Any(), gomock.Any()).Return(nil)
				rec.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := matching.NewMockRepository(ctrl)
			rec := matching.NewMockRecorder(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo, rec)
			}

			a, err := matching.NewService(repo, rec).Learn(context.Background(), admin, tt.pattern, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "TOR", a.Pattern)
		})
	}
}
