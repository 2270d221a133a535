package department

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/department"
	"github.com/MrJamesThe3rd/registrar/internal/http/respond"
	"github.com/MrJamesThe3rd/registrar/internal/http/session"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

type Handler struct {
	svc *department.Service
}

func NewHandler(svc *department.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)

	admin := r.With(session.RequireRole(identity.RoleAdmin))
	admin.Post("/", h.create)
	admin.Put("/{id}", h.rename)
	admin.Delete("/{id}", h.delete)
}

type departmentResponse struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	IsDeleted bool       `json:"is_deleted,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func toResponse(d *department.Department) departmentResponse {
	return departmentResponse{
		ID:        d.ID,
		Name:      d.Name,
		IsDeleted: d.IsDeleted,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type nameRequest struct {
	Name string `json:"name" validate:"notblank,max=120"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	includeDeleted := r.URL.Query().Get("include_deleted") == "true" && session.Actor(r).Is(identity.RoleAdmin)

	departments, err := h.svc.List(r.Context(), includeDeleted)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]departmentResponse, len(departments))
	for i, d := range departments {
		resp[i] = toResponse(d)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	d, err := h.svc.Create(r.Context(), session.Actor(r), req.Name)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(d))
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req nameRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	d, err := h.svc.Rename(r.Context(), session.Actor(r), id, req.Name)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toResponse(d))
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
