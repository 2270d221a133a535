package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

type transactionResponse struct {
	ID              uuid.UUID          `json:"id"`
	StudentID       uuid.UUID          `json:"student_id"`
	TotalAmount     int64              `json:"total_amount"`
	Status          transaction.Status `json:"status"`
	PackageID       *uuid.UUID         `json:"package_id,omitempty"`
	PackageName     string             `json:"package_name,omitempty"`
	Items           []lineItemResponse `json:"items,omitempty"`
	ScheduledFor    *time.Time         `json:"scheduled_for,omitempty"`
	ScheduledAt     *time.Time         `json:"scheduled_at,omitempty"`
	ReadyAt         *time.Time         `json:"ready_at,omitempty"`
	ClaimedAt       *time.Time         `json:"claimed_at,omitempty"`
	RejectedAt      *time.Time         `json:"rejected_at,omitempty"`
	ScheduleRemarks string             `json:"schedule_remarks,omitempty"`
	ReadyRemarks    string             `json:"ready_remarks,omitempty"`
	ClaimRemarks    string             `json:"claim_remarks,omitempty"`
	RejectRemarks   string             `json:"reject_remarks,omitempty"`
	ProofOfPayment  string             `json:"proof_of_payment,omitempty"`
	PaymentDate     *time.Time         `json:"payment_date,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`
}

type lineItemResponse struct {
	CredentialID   uuid.UUID `json:"credential_id"`
	CredentialName string    `json:"credential_name"`
	Quantity       int       `json:"quantity"`
	UnitPrice      int64     `json:"unit_price"`
	Subtotal       int64     `json:"subtotal"`
}

type historyResponse struct {
	ID        uuid.UUID          `json:"id"`
	ActorID   uuid.UUID          `json:"actor_id"`
	ActorRole identity.Role      `json:"actor_role"`
	Status    transaction.Status `json:"status"`
	Remarks   string             `json:"remarks"`
	CreatedAt time.Time          `json:"created_at"`
}

func toResponse(t *transaction.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:              t.ID,
		StudentID:       t.StudentID,
		TotalAmount:     t.TotalAmount,
		Status:          t.Status,
		PackageID:       t.PackageID,
		PackageName:     t.PackageName,
		ScheduledFor:    t.ScheduledFor,
		ScheduledAt:     t.ScheduledAt,
		ReadyAt:         t.ReadyAt,
		ClaimedAt:       t.ClaimedAt,
		RejectedAt:      t.RejectedAt,
		ScheduleRemarks: t.ScheduleRemarks,
		ReadyRemarks:    t.ReadyRemarks,
		ClaimRemarks:    t.ClaimRemarks,
		RejectRemarks:   t.RejectRemarks,
		ProofOfPayment:  t.ProofOfPayment,
		PaymentDate:     t.PaymentDate,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}

	for _, item := range t.Items {
		resp.Items = append(resp.Items, lineItemResponse{
			CredentialID:   item.CredentialID,
			CredentialName: item.CredentialName,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			Subtotal:       item.Subtotal,
		})
	}

	return resp
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, t := range txs {
		resp[i] = toResponse(t)
	}

	return resp
}

func toHistoryList(history []*transaction.History) []historyResponse {
	resp := make([]historyResponse, len(history))
	for i, h := range history {
		resp[i] = historyResponse{
			ID:        h.ID,
			ActorID:   h.ActorID,
			ActorRole: h.ActorRole,
			Status:    h.Status,
			Remarks:   h.Remarks,
			CreatedAt: h.CreatedAt,
		}
	}

	return resp
}
