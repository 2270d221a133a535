package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/registrar/internal/auth"
	"github.com/MrJamesThe3rd/registrar/internal/http/session"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

func TestAuthenticate(t *testing.T) {
	issuer := auth.NewIssuer("test-secret", time.Hour)
	staff := identity.Actor{ID: uuid.New(), Role: identity.RoleStaff}

	token, _, err := issuer.Issue(staff)
	require.NoError(t, err)

	type testCase struct {
		name       string
		header     string
		roles      []identity.Role
		wantStatus int
	}

	tests := []testCase{
		{name: "NoHeader", wantStatus: http.StatusUnauthorized},
		{name: "NotBearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "BadToken", header: "Bearer garbage", wantStatus: http.StatusUnauthorized},
		{name: "Valid", header: "Bearer " + token, wantStatus: http.StatusOK},
		{
			name:       "RoleAllowed",
			header:     "Bearer " + token,
			roles:      []identity.Role{identity.RoleStaff, identity.RoleAdmin},
			wantStatus: http.StatusOK,
		},
		{
			name:       "RoleDenied",
			header:     "Bearer " + token,
			roles:      []identity.Role{identity.RoleAdmin},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen identity.Actor

			var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = session.Actor(r)
				w.WriteHeader(http.StatusOK)
			})

			if tt.roles != nil {
				h = session.RequireRole(tt.roles...)(h)
			}

			h = session.Authenticate(issuer)(h)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, staff, seen)
			}
		})
	}
}
