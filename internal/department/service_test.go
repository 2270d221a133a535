package department_test

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
	"github.com/MrJamesThe3rd/registrar/internal/department"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

var admin = identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		input     string
		setupMock func(repo *department.MockRepository, rec *department.MockRecorder)
		wantErr   error
	}

	tests := []testCase{
		{
			name:  "Success",
			input: "  College of Engineering ",
			setupMock: func(repo *department.MockRepository, rec *department.MockRecorder) {
				repo.EXPECT().
					CreateDepartment(gomock.Any(), &department.Department{Name: "College of Engineering"}).
					Return(nil)
				rec.EXPECT().
					Record(gomock.Any(), admin, auditlog.TypeDepartmentChanged, "created department College of Engineering").
					Return(nil)
			},
		},
		{
			name:    "EmptyName",
			input:   "   ",
			wantErr: apperr.ErrInvalid,
		},
		{
			name:  "Duplicate",
			input: "Nursing",
			setupMock: func(repo *department.MockRepository, _ *department.MockRecorder) {
				repo.EXPECT().CreateDepartment(gomock.Any(), gomock.Any()).Return(department.ErrNameTaken)
			},
			wantErr: apperr.ErrConflict,
		},
		{
			name:  "AuditFailureIgnored",
			input: "Nursing",
			setupMock: func(repo *department.MockRepository, rec *department.MockRecorder) {
				repo.EXPECT().CreateDepartment(gomock.Any(), gomock.Any()).Return(nil)
				rec.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := department.NewMockRepository(ctrl)
			rec := department.NewMockRecorder(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo, rec)
			}

			svc := department.NewService(repo, rec)
			d, err := svc.Create(context.Background(), admin, tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, d.Name)
		})
	}
}

func TestService_Rename(t *testing.T) {
	id := uuid.New()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := department.NewMockRepository(ctrl)
	rec := department.NewMockRecorder(ctrl)

	gomock.InOrder(
		repo.EXPECT().RenameDepartment(gomock.Any(), id, "Arts").Return(nil),
		rec.EXPECT().Record(gomock.Any(), admin, auditlog.TypeDepartmentChanged, gomock.Any()).Return(nil),
		repo.EXPECT().GetDepartment(gomock.Any(), id).Return(&department.Department{ID: id, Name: "Arts"}, nil),
	)

	svc := department.NewService(repo, rec)
	d, err := svc.Rename(context.Background(), admin, id, "Arts")
	require.NoError(t, err)
	assert.Equal(t, "Arts", d.Name)
}

func TestService_Delete(t *testing.T) {
	id := uuid.New()

	type testCase struct {
		name      string
		setupMock func(repo *department.MockRepository, rec *department.MockRecorder)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "SoftDeletes",
			setupMock: func(repo *department.MockRepository, rec *department.MockRecorder) {
				repo.EXPECT().SoftDeleteDepartment(gomock.Any(), id).Return(nil)
				rec.EXPECT().Record(gomock.Any(), admin, auditlog.TypeDepartmentChanged, gomock.Any()).Return(nil)
			},
		},
		{
			name: "AlreadyDeleted",
			setupMock: func(repo *department.MockRepository, _ *department.MockRecorder) {
				repo.EXPECT().SoftDeleteDepartment(gomock.Any(), id).Return(department.ErrNotFound)
			},
			wantErr: apperr.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := department.NewMockRepository(ctrl)
			rec := department.NewMockRecorder(ctrl)
			tt.setupMock(repo, rec)

			err := department.NewService(repo, rec).Delete(context.Background(), admin, id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}
