package transaction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/account"
	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/department"
	"github.com/MrJamesThe3rd/registrar/internal/http/respond"
	"github.com/MrJamesThe3rd/registrar/internal/http/session"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/slip"
	"github.com/MrJamesThe3rd/registrar/internal/transaction"
)

type Uploads interface {
	Save(r io.Reader, transactionID uuid.UUID) (string, error)
	Remove(name string) error
}

type Accounts interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

type Departments interface {
	Get(ctx context.Context, id uuid.UUID) (*department.Department, error)
}

type Handler struct {
	svc         *transaction.Service
	uploads     Uploads
	accounts    Accounts
	departments Departments
	institution string
	maxUpload   int64
}

func NewHandler(
	svc *transaction.Service,
	uploads Uploads,
	accounts Accounts,
	departments Departments,
	institution string,
	maxUpload int64,
) *Handler {
	return &Handler{
		svc:         svc,
		uploads:     uploads,
		accounts:    accounts,
		departments: departments,
		institution: institution,
		maxUpload:   maxUpload,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.With(session.RequireRole(identity.RoleStudent)).Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.edit)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/proof", h.uploadProof)
	r.Get("/{id}/history", h.history)
	r.Get("/{id}/slip.pdf", h.slip)

	r.With(session.RequireRole(identity.RoleStaff, identity.RoleAdmin, identity.RoleSAScheduling)).
		Post("/{id}/schedule", h.schedule)
	r.With(session.RequireRole(identity.RoleStaff, identity.RoleAdmin)).
		Post("/{id}/ready", h.ready)
	r.With(session.RequireRole(identity.RoleStaff, identity.RoleAdmin, identity.RoleSAReleasing)).
		Post("/{id}/claim", h.claim)
	r.With(session.RequireRole(identity.RoleStaff, identity.RoleAdmin)).
		Post("/{id}/reject", h.reject)
}

type itemRequest struct {
	CredentialID uuid.UUID `json:"credential_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"gte=1"`
}

type createRequest struct {
	PackageID *uuid.UUID    `json:"package_id,omitempty"`
	Items     []itemRequest `json:"items,omitempty" validate:"omitempty,dive"`
}

func toItemParams(items []itemRequest) []transaction.ItemParams {
	params := make([]transaction.ItemParams, len(items))
	for i, item := range items {
		params[i] = transaction.ItemParams{CredentialID: item.CredentialID, Quantity: item.Quantity}
	}

	return params
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	t, err := h.svc.Create(r.Context(), session.Actor(r), transaction.CreateParams{
		PackageID: req.PackageID,
		Items:     toItemParams(req.Items),
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := transaction.ListFilter{}
	query := r.URL.Query()

	if s := query.Get("status"); s != "" {
		status, err := transaction.ParseStatus(s)
		if err != nil {
			respond.Error(w, r, apperr.Invalid("%v", err))
			return
		}

		filter.Status = &status
	}

	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		s := query.Get(p.key)
		if s == "" {
			continue
		}

		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			respond.Error(w, r, apperr.Invalid("%s must be YYYY-MM-DD", p.key))
			return
		}

		*p.dst = &d
	}

	txs, err := h.svc.List(r.Context(), session.Actor(r), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	t, err := h.svc.Get(r.Context(), session.Actor(r), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(t))
}

type editRequest struct {
	Items       []itemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	PaymentDate *string       `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req editRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	params := transaction.EditParams{Items: toItemParams(req.Items)}

	if req.PaymentDate != nil {
		d, _ := time.Parse(time.DateOnly, *req.PaymentDate)
		params.PaymentDate = &d
	}

	t, err := h.svc.Edit(r.Context(), session.Actor(r), id, params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), session.Actor(r), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}

func (h *Handler) uploadProof(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		respond.Error(w, r, apperr.Invalid("failed to parse form: %v", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, r, apperr.Invalid("file field is required"))
		return
	}
	defer file.Close()

	var paid *time.Time

	if s := r.FormValue("payment_date"); s != "" {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			respond.Error(w, r, apperr.Invalid("payment_date must be YYYY-MM-DD"))
			return
		}

		paid = &d
	}

	name, err := h.uploads.Save(file, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	t, previous, err := h.svc.ReplaceProof(r.Context(), session.Actor(r), id, name, paid)
	if err != nil {
		h.removeUpload(name)
		respond.Error(w, r, err)

		return
	}

	if previous != "" {
		h.removeUpload(previous)
	}

	respond.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) removeUpload(name string) {
	if err := h.uploads.Remove(name); err != nil {
		slog.Error("failed to remove upload", "file", name, "error", err)
	}
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	history, err := h.svc.History(r.Context(), session.Actor(r), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toHistoryList(history))
}

func (h *Handler) slip(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	t, err := h.svc.Get(r.Context(), session.Actor(r), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	student, err := h.accounts.Get(r.Context(), t.StudentID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var deptName string

	if student.DepartmentID != nil {
		if d, err := h.departments.Get(r.Context(), *student.DepartmentID); err == nil {
			deptName = d.Name
		}
	}

	var buf bytes.Buffer

	err = slip.Render(&buf, slip.Slip{
		Institution: h.institution,
		Transaction: t,
		Student:     student,
		Department:  deptName,
		PrintedAt:   time.Now(),
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="slip-%s.pdf"`, t.ID))

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to write slip", "transaction", t.ID, "error", err)
	}
}

type scheduleRequest struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Remarks string `json:"remarks" validate:"notblank"`
}

type remarksRequest struct {
	Remarks string `json:"remarks" validate:"notblank"`
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req scheduleRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	date, _ := time.Parse(time.DateOnly, req.Date)

	t, err := h.svc.Schedule(r.Context(), session.Actor(r), id, transaction.ScheduleParams{
		Date:    date,
		Remarks: req.Remarks,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(t))
}

type remarksTransition func(ctx context.Context, actor identity.Actor, id uuid.UUID, remarks string) (*transaction.Transaction, error)

func (h *Handler) withRemarks(move remarksTransition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		var req remarksRequest
		if err := respond.Decode(r.Body, &req); err != nil {
			respond.Error(w, r, err)
			return
		}

		t, err := move(r.Context(), session.Actor(r), id, req.Remarks)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		respond.JSON(w, http.StatusOK, toResponse(t))
	}
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	h.withRemarks(h.svc.MarkReady)(w, r)
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	h.withRemarks(h.svc.Claim)(w, r)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.withRemarks(h.svc.Reject)(w, r)
}
