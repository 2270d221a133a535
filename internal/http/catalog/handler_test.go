package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/registrar/internal/catalog"
	cataloghttp "github.com/MrJamesThe3rd/registrar/internal/http/catalog"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/matching"
)

type fixture struct {
	catalogRepo *catalog.MockRepository
	catalogLog  *catalog.MockRecorder
	aliasRepo   *matching.MockRepository
	aliasLog    *matching.MockRecorder
	router      http.Handler
}

func newFixture(t *testing.T, role identity.Role) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := &fixture{
		catalogRepo: catalog.NewMockRepository(ctrl),
		catalogLog:  catalog.NewMockRecorder(ctrl),
		aliasRepo:   matching.NewMockRepository(ctrl),
		aliasLog:    matching.NewMockRecorder(ctrl),
	}

	h := cataloghttp.NewHandler(
		catalog.NewService(f.catalogRepo, f.catalogLog),
		matching.NewService(f.aliasRepo, f.aliasLog),
	)

	actor := identity.Actor{ID: uuid.New(), Role: role}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(identity.WithActor(req.Context(), actor)))
		})
	})
	r.Route("/credentials", h.CredentialRoutes)
	f.router = r

	return f
}

func (f *fixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func importRequest(t *testing.T, csv string) *http.Request {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "prices.csv")
	require.NoError(t, err)

	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/credentials/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestHandler_Import_AppliesAliases(t *testing.T) {
	f := newFixture(t, identity.RoleAdmin)

	f.aliasRepo.EXPECT().FindMatch(gomock.Any(), "TOR").Return("Transcript of Records", nil)
	f.aliasRepo.EXPECT().FindMatch(gomock.Any(), "Diploma").Return("", nil)
	f.catalogRepo.EXPECT().
		UpsertCredentials(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cs []*catalog.Credential) (int, error) {
			require.Len(t, cs, 2)
			assert.Equal(t, "Transcript of Records", cs[0].Name)
			assert.Equal(t, int64(150), cs[0].Price)
			assert.Equal(t, "Diploma", cs[1].Name)

			return 1, nil
		})
	f.catalogLog.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	rec := f.serve(importRequest(t, "name;price\nTOR;150\nDiploma;500\n"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Created int `json:"created"`
		Updated int `json:"updated"`
		Renamed int `json:"renamed"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Created)
	assert.Equal(t, 1, body.Updated)
	assert.Equal(t, 1, body.Renamed)
}

func TestHandler_Import_StaffForbidden(t *testing.T) {
	f := newFixture(t, identity.RoleStaff)

	rec := f.serve(importRequest(t, "name;price\nTOR;150\n"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandler_CreateAlias(t *testing.T) {
	type testCase struct {
		name       string
		body       string
		setupMock  func(f *fixture)
		wantStatus int
	}

	tests := []testCase{
		{
			name: "Created",
			body: `{"pattern":"TOR","name":"Transcript of Records"}`,
			setupMock: func(f *fixture) {
				f.aliasRepo.EXPECT().CreateAlias(gomock.Any(), gomock.Any()).Return(nil)
				f.aliasLog.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "BlankPattern",
			body:       `{"pattern":"  ","name":"Transcript of Records"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "UnknownField",
			body:       `{"pattern":"TOR","name":"Transcript","price":10}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, identity.RoleAdmin)
			if tt.setupMock != nil {
				tt.setupMock(f)
			}

			req := httptest.NewRequest(http.MethodPost, "/credentials/aliases", strings.NewReader(tt.body))
			rec := f.serve(req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_DeleteCredential(t *testing.T) {
	id := uuid.New()

	type testCase struct {
		name       string
		role       identity.Role
		path       string
		setupMock  func(f *fixture)
		wantStatus int
	}

	tests := []testCase{
		{
			name: "Deleted",
			role: identity.RoleAdmin,
			path: "/credentials/" + id.String(),
			setupMock: func(f *fixture) {
				f.catalogRepo.EXPECT().SoftDeleteCredential(gomock.Any(), id).Return(nil)
				f.catalogLog.EXPECT().Record(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name: "NotFound",
			role: identity.RoleAdmin,
			path: "/credentials/" + id.String(),
			setupMock: func(f *fixture) {
				f.catalogRepo.EXPECT().SoftDeleteCredential(gomock.Any(), id).Return(catalog.ErrCredentialNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "BadID",
			role:       identity.RoleAdmin,
			path:       "/credentials/nope",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "StaffForbidden",
			role:       identity.RoleStaff,
			path:       "/credentials/" + id.String(),
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.role)
			if tt.setupMock != nil {
				tt.setupMock(f)
			}

			rec := f.serve(httptest.NewRequest(http.MethodDelete, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}
