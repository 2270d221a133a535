package report

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/http/respond"
	"github.com/MrJamesThe3rd/registrar/internal/http/session"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/report"
)

type Handler struct {
	svc *report.Service
}

func NewHandler(svc *report.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Use(session.RequireRole(identity.RoleStaff, identity.RoleAdmin, identity.RoleSAScheduling, identity.RoleSAReleasing))

	r.Get("/count", h.count)
	r.Get("/activity", h.activity)
	r.Get("/summary", h.summary)
	r.Get("/monthly", h.monthly)
}

type countResponse struct {
	Type   string        `json:"type"`
	Bucket report.Bucket `json:"bucket"`
	Count  int           `json:"count"`
}

// staffScope returns the caller's id when scope=mine is asked by a staff member.
func staffScope(r *http.Request) *uuid.UUID {
	actor := session.Actor(r)
	if r.URL.Query().Get("scope") != "mine" || actor.Role != identity.RoleStaff {
		return nil
	}

	return &actor.ID
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	bucket, err := report.ParseBucket(r.URL.Query().Get("bucket"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	typ := r.URL.Query().Get("type")

	n, err := h.svc.CountTransactions(r.Context(), report.CountQuery{
		Type:    typ,
		Bucket:  bucket,
		StaffID: staffScope(r),
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, countResponse{Type: typ, Bucket: bucket, Count: n})
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	bucket, err := report.ParseBucket(query.Get("bucket"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	q := report.ActivityQuery{Type: query.Get("type"), Bucket: bucket}

	if s := query.Get("role"); s != "" {
		role, err := identity.ParseRole(s)
		if err != nil {
			respond.Error(w, r, apperr.Invalid("%v", err))
			return
		}

		q.Role = &role
	}

	n, err := h.svc.CountActivity(r.Context(), q)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, countResponse{Type: q.Type, Bucket: bucket, Count: n})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	bucket, err := report.ParseBucket(r.URL.Query().Get("bucket"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	sum, err := h.svc.Summary(r.Context(), bucket, staffScope(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, sum)
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		respond.Error(w, r, apperr.Invalid("year must be a number"))
		return
	}

	months, err := h.svc.Monthly(r.Context(), year, staffScope(r))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, months)
}
