package account

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/account"
	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/http/respond"
	"github.com/MrJamesThe3rd/registrar/internal/http/session"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

type TokenIssuer interface {
	Issue(actor identity.Actor) (string, time.Time, error)
}

type Handler struct {
	svc    *account.Service
	tokens TokenIssuer
}

func NewHandler(svc *account.Service, tokens TokenIssuer) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

// AuthRoutes are mounted outside the authenticated group.
func (h *Handler) AuthRoutes(r chi.Router) {
	r.Post("/login", h.login)
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/me", h.me)

	r.Group(func(r chi.Router) {
		r.Use(session.RequireRole(identity.RoleAdmin))
		r.Get("/", h.list)
		r.Post("/", h.register)
		r.Get("/{id}", h.get)
		r.Put("/{id}/departments", h.assignDepartments)
	})
}

type accountResponse struct {
	ID            uuid.UUID     `json:"id"`
	Role          identity.Role `json:"role"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	StudentNo     string        `json:"student_no,omitempty"`
	DepartmentID  *uuid.UUID    `json:"department_id,omitempty"`
	DepartmentIDs []uuid.UUID   `json:"department_ids,omitempty"`
	IsActive      bool          `json:"is_active"`
	CreatedAt     time.Time     `json:"created_at"`
}

func toResponse(a *account.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Role:         a.Role,
		Name:         a.Name,
		Email:        a.Email,
		StudentNo:    a.StudentNo,
		DepartmentID: a.DepartmentID,
		IsActive:     a.IsActive,
		CreatedAt:    a.CreatedAt,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   accountResponse `json:"account"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	acc, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	token, exp, err := h.tokens.Issue(acc.Actor())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, Account: toResponse(acc)})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	h.writeAccount(w, r, session.Actor(r).ID)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	h.writeAccount(w, r, id)
}

func (h *Handler) writeAccount(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	acc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := toResponse(acc)

	if acc.Role == identity.RoleStaff {
		if resp.DepartmentIDs, err = h.svc.DepartmentsOf(r.Context(), acc.ID); err != nil {
			respond.Error(w, r, err)
			return
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var role *identity.Role

	if s := r.URL.Query().Get("role"); s != "" {
		parsed, err := identity.ParseRole(s)
		if err != nil {
			respond.Error(w, r, apperr.Invalid("%v", err))
			return
		}

		role = &parsed
	}

	accounts, err := h.svc.List(r.Context(), role)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]accountResponse, len(accounts))
	for i, a := range accounts {
		resp[i] = toResponse(a)
	}

	respond.JSON(w, http.StatusOK, resp)
}

type registerRequest struct {
	Role          string      `json:"role" validate:"required,oneof=student staff admin sa_scheduling sa_releasing"`
	Name          string      `json:"name" validate:"notblank"`
	Email         string      `json:"email" validate:"required,email"`
	Password      string      `json:"password" validate:"required,min=8"`
	StudentNo     string      `json:"student_no,omitempty"`
	DepartmentID  *uuid.UUID  `json:"department_id,omitempty"`
	DepartmentIDs []uuid.UUID `json:"department_ids,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	acc, err := h.svc.Register(r.Context(), session.Actor(r), account.RegisterParams{
		Role:          identity.Role(req.Role),
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		StudentNo:     req.StudentNo,
		DepartmentID:  req.DepartmentID,
		DepartmentIDs: req.DepartmentIDs,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toResponse(acc))
}

type departmentsRequest struct {
	DepartmentIDs []uuid.UUID `json:"department_ids" validate:"required"`
}

func (h *Handler) assignDepartments(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req departmentsRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.AssignDepartments(r.Context(), session.Actor(r), id, req.DepartmentIDs); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}
