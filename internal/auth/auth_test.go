package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auth"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := auth.NewIssuer("s3cret", time.Hour)
	actor := identity.Actor{ID: uuid.New(), Role: identity.RoleSAReleasing}

	token, exp, err := issuer.Issue(actor)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestIssuer_Parse(t *testing.T) {
	actor := identity.Actor{ID: uuid.New(), Role: identity.RoleStaff}

	issued := auth.NewIssuer("s3cret", time.Minute)
	token, _, err := issued.Issue(actor)
	require.NoError(t, err)

	type testCase struct {
		name   string
		issuer func() *auth.Issuer
		token  string
	}

	tests := []testCase{
		{
			name:   "WrongSecret",
			issuer: func() *auth.Issuer { return auth.NewIssuer("other", time.Minute) },
			token:  token,
		},
		{
			name: "Expired",
			issuer: func() *auth.Issuer {
				i := auth.NewIssuer("s3cret", time.Minute)
				i.SetClock(func() time.Time { return time.Now().Add(2 * time.Minute) })

				return i
			},
			token: token,
		},
		{
			name:   "Garbage",
			issuer: func() *auth.Issuer { return auth.NewIssuer("s3cret", time.Minute) },
			token:  "not-a-token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.issuer().Parse(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}
}
