package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/registrar/internal/account"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/notify"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

func event(to transaction.Status, remarks string) transaction.Event {
	return transaction.Event{
		TransactionID: uuid.MustParse("0f3a9c2e-1111-4222-8333-944455556666"),
		StudentID:     uuid.New(),
		From:          transaction.StatusSubmitted,
		To:            to,
		Actor:         identity.Actor{ID: uuid.New(), Role: identity.RoleStaff},
		Remarks:       remarks,
		At:            time.Now(),
	}
}

func TestMailer_Notify(t *testing.T) {
	student := &account.Account{Name: "Juan Dela Cruz", Email: "juan@example.edu"}

	type testCase struct {
		name      string
		event     transaction.Event
		setupMock func(dir *notify.MockDirectory, sender *notify.MockSender)
		wantErr   bool
	}

	tests := []testCase{
		{
			name:  "Scheduled",
			event: event(transaction.StatusScheduled, "pick up Friday"),
			setupMock: func(dir *notify.MockDirectory, sender *notify.MockSender) {
				dir.EXPECT().Get(gomock.Any(), gomock.Any()).Return(student, nil)
				sender.EXPECT().Send(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, msg *sgmail.SGMailV3) error {
						assert.Equal(t, "Request 0F3A9C2E: Scheduled", msg.Subject)
						require.Len(t, msg.Personalizations, 1)
						assert.Equal(t, "juan@example.edu", msg.Personalizations[0].To[0].Address)
						require.NotEmpty(t, msg.Content)
						assert.Contains(t, msg.Content[0].Value, "Remarks: pick up Friday")

						return nil
					})
			},
		},
		{
			name:  "SubmittedNotMailed",
			event: event(transaction.StatusSubmitted, ""),
		},
		{
			name:  "UnknownStudent",
			event: event(transaction.StatusRejected, "unpaid"),
			setupMock: func(dir *notify.MockDirectory, _ *notify.MockSender) {
				dir.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, account.ErrNotFound)
			},
			wantErr: true,
		},
		{
			name:  "SendFails",
			event: event(transaction.StatusReady, "ok"),
			setupMock: func(dir *notify.MockDirectory, sender *notify.MockSender) {
				dir.EXPECT().Get(gomock.Any(), gomock.Any()).Return(student, nil)
				sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("timeout"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			dir := notify.NewMockDirectory(ctrl)
			sender := notify.NewMockSender(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(dir, sender)
			}

			m := notify.NewMailer(dir, sender, "Registrar", "registrar@example.edu")
			err := m.Notify(context.Background(), tt.event)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
		})
	}
}

type notifierFunc func(context.Context, transaction.Event) error

func (f notifierFunc) Notify(ctx context.Context, e transaction.Event) error { return f(ctx, e) }

func TestFanout(t *testing.T) {
	var calls int

	ok := notifierFunc(func(context.Context, transaction.Event) error {
		calls++
		return nil
	})
	broken := notifierFunc(func(context.Context, transaction.Event) error {
		calls++
		return errors.New("broker down")
	})

	err := notify.Fanout{broken, ok}.Notify(context.Background(), event(transaction.StatusClaimed, "released"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, 2, calls)

	assert.NoError(t, notify.Fanout{ok}.Notify(context.Background(), event(transaction.StatusClaimed, "")))
}

func TestLogSender(t *testing.T) {
	msg := sgmail.NewSingleEmail(sgmail.NewEmail("R", "r@example.edu"), "subject",
		sgmail.NewEmail("S", "s@example.edu"), "body", "")

	assert.NoError(t, notify.LogSender{}.Send(context.Background(), msg))
}
