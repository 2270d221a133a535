package transaction_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/registrar/internal/account"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/department"
	transactionhttp "github.com/MrJamesThe3rd/registrar/internal/http/transaction"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

const maxUpload = 1024

type fakeUploads struct {
	name    string
	saveErr error
	saved   [][]byte
	removed []string
}

func (u *fakeUploads) Save(r io.Reader, _ uuid.UUID) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	if u.saveErr != nil {
		return "", u.saveErr
	}

	u.saved = append(u.saved, data)

	return u.name, nil
}

func (u *fakeUploads) Remove(name string) error {
	u.removed = append(u.removed, name)
	return nil
}

type fakeAccounts map[uuid.UUID]*account.Account

func (a fakeAccounts) Get(_ context.Context, id uuid.UUID) (*account.Account, error) {
	if acc, ok := a[id]; ok {
		return acc, nil
	}

	return nil, account.ErrNotFound
}

type fakeDepartments struct {
	err    error
	called int
}

func (d *fakeDepartments) Get(_ context.Context, id uuid.UUID) (*department.Department, error) {
	d.called++

	if d.err != nil {
		return nil, d.err
	}

	return &department.Department{ID: id, Name: "College of Engineering"}, nil
}

type fixture struct {
	repo        *transaction.MockRepository
	tx          *transaction.MockTx
	notifier    *transaction.MockNotifier
	uploads     *fakeUploads
	accounts    fakeAccounts
	departments *fakeDepartments
	actor       identity.Actor
	router      http.Handler
}

func newFixture(t *testing.T, role identity.Role) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &fixture{
		repo:        transaction.NewMockRepository(ctrl),
		tx:          transaction.NewMockTx(ctrl),
		notifier:    transaction.NewMockNotifier(ctrl),
		uploads:     &fakeUploads{name: "new-proof.png"},
		accounts:    fakeAccounts{},
		departments: &fakeDepartments{},
		actor:       identity.Actor{ID: uuid.New(), Role: role},
	}

	svc := transaction.NewService(f.repo, transaction.NewMockPricer(ctrl), f.notifier)
	h := transactionhttp.NewHandler(svc, f.uploads, f.accounts, f.departments, "Office of the Registrar", maxUpload)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(identity.WithActor(req.Context(), f.actor)))
		})
	})
	r.Route("/transactions", h.Routes)
	f.router = r

	return f
}

func (f *fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func (f *fixture) expectBegin() {
	f.repo.EXPECT().Begin(gomock.Any()).Return(f.tx, nil)
	f.tx.EXPECT().Rollback().Return(nil)
}

func proofRequest(t *testing.T, id uuid.UUID, file []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	if file != nil {
		part, err := mw.CreateFormFile("file", "receipt.png")
		require.NoError(t, err)

		_, err = part.Write(file)
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/transactions/%s/proof", id), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestHandler_UploadProof(t *testing.T) {
	id := uuid.New()
	receipt := []byte("\x89PNG\r\n\x1a\nreceipt")

	t.Run("ReplacesPreviousProof", func(t *testing.T) {
		f := newFixture(t, identity.RoleStudent)

		f.expectBegin()
		f.tx.EXPECT().Get(gomock.Any(), id).Return(&transaction.Transaction{
			ID:             id,
			StudentID:      f.actor.ID,
			Status:         transaction.StatusSubmitted,
			ProofOfPayment: "old-proof.png",
		}, nil)
		f.tx.EXPECT().
			Update(gomock.Any(), id, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, c transaction.Changes) (bool, error) {
				require.NotNil(t, c.ProofOfPayment)
				assert.Equal(t, "new-proof.png", *c.ProofOfPayment)
				require.NotNil(t, c.PaymentDate)
				assert.Equal(t, time.Date(2026, time.October, 2, 0, 0, 0, 0, time.UTC), *c.PaymentDate)
				assert.Nil(t, c.TotalAmount)

				return true, nil
			})
		f.tx.EXPECT().
			AppendLog(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, e *auditlog.Entry) error {
				assert.Equal(t, auditlog.TypeTransactionEdited, e.Type)
				return nil
			})
		f.tx.EXPECT().Commit().Return(nil)

		rec := f.serve(proofRequest(t, id, receipt, map[string]string{"payment_date": "2026-10-02"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			ProofOfPayment string `json:"proof_of_payment"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "new-proof.png", body.ProofOfPayment)

		require.Len(t, f.uploads.saved, 1)
		assert.Equal(t, receipt, f.uploads.saved[0])
		assert.Equal(t, []string{"old-proof.png"}, f.uploads.removed)
	})

	t.Run("FirstProofRemovesNothing", func(t *testing.T) {
		f := newFixture(t, identity.RoleStudent)

		f.expectBegin()
		f.tx.EXPECT().Get(gomock.Any(), id).
			Return(&transaction.Transaction{ID: id, StudentID: f.actor.ID, Status: transaction.StatusSubmitted}, nil)
		f.tx.EXPECT().Update(gomock.Any(), id, gomock.Any()).Return(true, nil)
		f.tx.EXPECT().AppendLog(gomock.Any(), gomock.Any()).Return(nil)
		f.tx.EXPECT().Commit().Return(nil)

		rec := f.serve(proofRequest(t, id, receipt, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Empty(t, f.uploads.removed)
	})

	t.Run("EditFailsRemovesNewFile", func(t *testing.T) {
		f := newFixture(t, identity.RoleStudent)

		f.expectBegin()
		f.tx.EXPECT().Get(gomock.Any(), id).Return(&transaction.Transaction{
			ID:             id,
			StudentID:      f.actor.ID,
			Status:         transaction.StatusScheduled,
			ProofOfPayment: "old-proof.png",
		}, nil)

		rec := f.serve(proofRequest(t, id, receipt, nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, []string{"new-proof.png"}, f.uploads.removed)
	})

	t.Run("SaveRejected", func(t *testing.T) {
		f := newFixture(t, identity.RoleStudent)
		f.uploads.saveErr = errors.New("disk full")

		rec := f.serve(proofRequest(t, id, receipt, nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, f.uploads.removed)
	})

	type testCase struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
	}

	tests := []testCase{
		{
			name: "BadPaymentDate",
			req: func(t *testing.T) *http.Request {
				return proofRequest(t, id, receipt, map[string]string{"payment_date": "02/10/2026"})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "MissingFile",
			req: func(t *testing.T) *http.Request {
				return proofRequest(t, id, nil, map[string]string{"payment_date": "2026-10-02"})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "NotMultipart",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/transactions/"+id.String()+"/proof", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")

				return req
			},
			status: http.StatusBadRequest,
		},
		{
			// The body cap is the upload limit plus one MiB of form overhead.
			name: "BodyOverCap",
			req: func(t *testing.T) *http.Request {
				return proofRequest(t, id, bytes.Repeat([]byte{0}, maxUpload+2<<20), nil)
			},
			status: http.StatusBadRequest,
		},
		{
			name: "BadID",
			req: func(t *testing.T) *http.Request {
				req := proofRequest(t, id, receipt, nil)
				req.URL.Path = "/transactions/nope/proof"

				return req
			},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, identity.RoleStudent)

			rec := f.serve(tt.req(t))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Empty(t, f.uploads.saved)
			assert.Empty(t, f.uploads.removed)
		})
	}
}

func TestHandler_Slip(t *testing.T) {
	id := uuid.New()
	deptID := uuid.New()

	type testCase struct {
		name       string
		deptErr    error
		noAccount  bool
		wantStatus int
	}

	tests := []testCase{
		{name: "WithDepartment", wantStatus: http.StatusOK},
		{name: "DepartmentLookupFails", deptErr: department.ErrNotFound, wantStatus: http.StatusOK},
		{name: "UnknownStudent", noAccount: true, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, identity.RoleStudent)
			f.departments.err = tt.deptErr

			if !tt.noAccount {
				f.accounts[f.actor.ID] = &account.Account{
					ID:           f.actor.ID,
					Name:         "Ana Reyes",
					StudentNo:    "2021-00042",
					DepartmentID: &deptID,
				}
			}

			f.repo.EXPECT().Get(gomock.Any(), id).Return(&transaction.Transaction{
				ID:          id,
				StudentID:   f.actor.ID,
				Status:      transaction.StatusSubmitted,
				TotalAmount: 150,
				Items:       []transaction.LineItem{{CredentialName: "Transcript", Quantity: 1, UnitPrice: 150, Subtotal: 150}},
				CreatedAt:   time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC),
			}, nil)

			rec := f.serve(httptest.NewRequest(http.MethodGet, "/transactions/"+id.String()+"/slip.pdf", nil))
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantStatus != http.StatusOK {
				return
			}

			assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
			assert.Equal(t, fmt.Sprintf(`inline; filename="slip-%s.pdf"`, id), rec.Header().Get("Content-Disposition"))
			assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
			assert.Equal(t, 1, f.departments.called)
		})
	}
}

func TestHandler_Slip_OtherStudent(t *testing.T) {
	f := newFixture(t, identity.RoleStudent)

	id := uuid.New()
	f.repo.EXPECT().Get(gomock.Any(), id).Return(&transaction.Transaction{ID: id, StudentID: uuid.New()}, nil)

	rec := f.serve(httptest.NewRequest(http.MethodGet, "/transactions/"+id.String()+"/slip.pdf", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, f.departments.called)
}

func TestHandler_Schedule(t *testing.T) {
	id := uuid.New()

	type testCase struct {
		name       string
		body       string
		wantDate   time.Time
		wantStatus int
	}

	tests := []testCase{
		{
			name:       "Valid",
			body:       `{"date":"2026-11-03","remarks":"bring ID"}`,
			wantDate:   time.Date(2026, time.November, 3, 0, 0, 0, 0, time.UTC),
			wantStatus: http.StatusOK,
		},
		{
			name:       "ImpossibleDate",
			body:       `{"date":"2026-02-30","remarks":"ok"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "WrongLayout",
			body:       `{"date":"11/03/2026","remarks":"ok"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "WithTime",
			body:       `{"date":"2026-11-03T09:00:00Z","remarks":"ok"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "MissingDate",
			body:       `{"remarks":"ok"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, identity.RoleAdmin)

			if tt.wantStatus == http.StatusOK {
				f.expectBegin()
				f.tx.EXPECT().Get(gomock.Any(), id).
					Return(&transaction.Transaction{ID: id, StudentID: uuid.New(), Status: transaction.StatusSubmitted}, nil)
				f.tx.EXPECT().
					UpdateStatus(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, c transaction.StatusChange) (bool, error) {
						require.NotNil(t, c.ScheduledFor)
						assert.True(t, tt.wantDate.Equal(*c.ScheduledFor))
						assert.Equal(t, "bring ID", c.Remarks)

						return true, nil
					})
				f.tx.EXPECT().AddHistory(gomock.Any(), gomock.Any()).Return(nil)
				f.tx.EXPECT().AppendLog(gomock.Any(), gomock.Any()).Return(nil)
				f.tx.EXPECT().Commit().Return(nil)
				f.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(nil)
			}

			req := httptest.NewRequest(http.MethodPost, "/transactions/"+id.String()+"/schedule", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := f.serve(req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}
