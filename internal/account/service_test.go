package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/registrar/internal/account"
	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

var admin = identity.Actor{ID: uuid.New(), Role: identity.RoleAdmin}

func TestService_Register(t *testing.T) {
	deptID := uuid.New()

	type testCase struct {
		name      string
		params    account.RegisterParams
		setupMock func(repo *account.MockRepository, rec *account.MockRecorder)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Student",
			params: account.RegisterParams{
				Role:         identity.RoleStudent,
				Name:         " Ana Reyes ",
				Email:        "Ana@School.edu",
				Password:     "secret123",
				StudentNo:    "2024-0001",
				DepartmentID: &deptID,
			},
			setupMock: func(repo *account.MockRepository, rec *account.MockRecorder) {
				repo.EXPECT().
					CreateAccount(gomock.Any(), gomock.Any(), []uuid.UUID{}).
					DoAndReturn(func(_ context.Context, acc *account.Account, _ []uuid.UUID) error {
						assert.Equal(t, "Ana Reyes", acc.Name)
						assert.Equal(t, "ana@school.edu", acc.Email)
						assert.Equal(t, &deptID, acc.DepartmentID)
						assert.True(t, acc.CheckPassword("secret123"))

						return nil
					})
				rec.EXPECT().Record(gomock.Any(), admin, auditlog.TypeAccountChanged, gomock.Any()).Return(nil)
			},
		},
		{
			name: "StaffDepartmentsDeduplicated",
			params: account.RegisterParams{
				Role:          identity.RoleStaff,
				Name:          "Ben",
				Email:         "ben@school.edu",
				Password:      "secret123",
				DepartmentIDs: []uuid.UUID{deptID, deptID},
			},
			setupMock: func(repo *account.MockRepository, rec *account.MockRecorder) {
				repo.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), []uuid.UUID{deptID}).Return(nil)
				rec.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("log down"))
			},
		},
		{
			name:    "UnknownRole",
			params:  account.RegisterParams{Role: "janitor", Name: "x", Email: "x@y.z", Password: "secret123"},
			wantErr: apperr.ErrInvalid,
		},
		{
			name:    "BadEmail",
			params:  account.RegisterParams{Role: identity.RoleAdmin, Name: "x", Email: "nope", Password: "secret123"},
			wantErr: apperr.ErrInvalid,
		},
		{
			name:    "ShortPassword",
			params:  account.RegisterParams{Role: identity.RoleAdmin, Name: "x", Email: "x@y.z", Password: "short"},
			wantErr: apperr.ErrInvalid,
		},
		{
			name:    "StudentWithoutDepartment",
			params:  account.RegisterParams{Role: identity.RoleStudent, Name: "x", Email: "x@y.z", Password: "secret123"},
			wantErr: apperr.ErrInvalid,
		},
		{
			name: "AssistantWithDepartments",
			params: account.RegisterParams{
				Role: identity.RoleSAScheduling, Name: "x", Email: "x@y.z", Password: "secret123",
				DepartmentIDs: []uuid.UUID{deptID},
			},
			wantErr: apperr.ErrInvalid,
		},
		{
			name:   "EmailTaken",
			params: account.RegisterParams{Role: identity.RoleAdmin, Name: "x", Email: "x@y.z", Password: "secret123"},
			setupMock: func(repo *account.MockRepository, _ *account.MockRecorder) {
				repo.EXPECT().CreateAccount(gomock.Any(), gomock.Any(), gomock.Any()).Return(account.ErrEmailTaken)
			},
			wantErr: apperr.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := account.NewMockRepository(ctrl)
			rec := account.NewMockRecorder(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo, rec)
			}

			svc := account.NewService(repo, rec)
			acc, err := svc.Register(context.Background(), admin, tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, acc)

				return
			}

			require.NoError(t, err)
			assert.True(t, acc.IsActive)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	active := &account.Account{ID: uuid.New(), Role: identity.RoleStaff, Email: "ben@school.edu", IsActive: true}
	require.NoError(t, active.SetPassword("secret123"))

	inactive := *active
	inactive.IsActive = false

	type testCase struct {
		name      string
		password  string
		setupMock func(repo *account.MockRepository, rec *account.MockRecorder)
		wantErr   error
	}

	tests := []testCase{
		{
			name:     "Success",
			password: "secret123",
			setupMock: func(repo *account.MockRepository, rec *account.MockRecorder) {
				repo.EXPECT().GetAccountByEmail(gomock.Any(), "ben@school.edu").Return(active, nil)
				rec.EXPECT().Record(gomock.Any(), active.Actor(), auditlog.TypeLogin, "signed in").Return(nil)
			},
		},
		{
			name:     "WrongPassword",
			password: "wrong-password",
			setupMock: func(repo *account.MockRepository, _ *account.MockRecorder) {
				repo.EXPECT().GetAccountByEmail(gomock.Any(), "ben@school.edu").Return(active, nil)
			},
			wantErr: account.ErrInvalidCredentials,
		},
		{
			name:     "UnknownEmail",
			password: "secret123",
			setupMock: func(repo *account.MockRepository, _ *account.MockRecorder) {
				repo.EXPECT().GetAccountByEmail(gomock.Any(), "ben@school.edu").Return(nil, account.ErrNotFound)
			},
			wantErr: account.ErrInvalidCredentials,
		},
		{
			name:     "Inactive",
			password: "secret123",
			setupMock: func(repo *account.MockRepository, _ *account.MockRecorder) {
				repo.EXPECT().GetAccountByEmail(gomock.Any(), "ben@school.edu").Return(&inactive, nil)
			},
			wantErr: account.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := account.NewMockRepository(ctrl)
			rec := account.NewMockRecorder(ctrl)
			tt.setupMock(repo, rec)

			svc := account.NewService(repo, rec)
			acc, err := svc.Authenticate(context.Background(), " BEN@school.edu ", tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, active.ID, acc.ID)
		})
	}
}

func TestService_AssignDepartments(t *testing.T) {
	staffID := uuid.New()
	dept := uuid.New()

	t.Run("Staff", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := account.NewMockRepository(ctrl)
		rec := account.NewMockRecorder(ctrl)

		repo.EXPECT().GetAccount(gomock.Any(), staffID).
			Return(&account.Account{ID: staffID, Role: identity.RoleStaff}, nil)
		repo.EXPECT().ReplaceDepartments(gomock.Any(), staffID, []uuid.UUID{dept}).Return(nil)
		rec.EXPECT().Record(gomock.Any(), admin, auditlog.TypeAccountChanged, gomock.Any()).Return(nil)

		svc := account.NewService(repo, rec)
		require.NoError(t, svc.AssignDepartments(context.Background(), admin, staffID, []uuid.UUID{dept, dept}))
	})

	t.Run("NotStaff", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := account.NewMockRepository(ctrl)
		repo.EXPECT().GetAccount(gomock.Any(), staffID).
			Return(&account.Account{ID: staffID, Role: identity.RoleStudent}, nil)

		svc := account.NewService(repo, account.NewMockRecorder(ctrl))
		err := svc.AssignDepartments(context.Background(), admin, staffID, []uuid.UUID{dept})
		assert.ErrorIs(t, err, apperr.ErrInvalid)
	})
}
