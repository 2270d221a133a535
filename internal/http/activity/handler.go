package activity

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/auditlog"
	"github.com/MrJamesThe3rd/registrar/internal/http/respond"
	"github.com/MrJamesThe3rd/registrar/internal/http/session"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
)

type Handler struct {
	svc *auditlog.Service
}

func NewHandler(svc *auditlog.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.timeline)
}

type entryResponse struct {
	ID        uuid.UUID     `json:"id"`
	ActorID   uuid.UUID     `json:"actor_id"`
	ActorRole identity.Role `json:"actor_role"`
	Type      auditlog.Type `json:"type"`
	Activity  string        `json:"activity"`
	CreatedAt time.Time     `json:"created_at"`
}

// timeline lists the caller's activity. Admins may pass actor_id or role.
func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := auditlog.ListFilter{}

	if s := query.Get("actor_id"); s != "" {
		id, err := respond.ParseUUID("actor_id", s)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		filter.ActorID = &id
	}

	if s := query.Get("role"); s != "" {
		role, err := identity.ParseRole(s)
		if err != nil {
			respond.Error(w, r, apperr.Invalid("%v", err))
			return
		}

		filter.Role = &role
	}

	if s := query.Get("type"); s != "" {
		typ, ok := auditlog.ParseType(s)
		if !ok {
			respond.Error(w, r, apperr.Invalid("unknown activity type %q", s))
			return
		}

		filter.Type = &typ
	}

	if s := query.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respond.Error(w, r, apperr.Invalid("limit must be a number"))
			return
		}

		filter.Limit = n
	}

	entries, err := h.svc.Timeline(r.Context(), session.Actor(r), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = entryResponse{
			ID:        e.ID,
			ActorID:   e.ActorID,
			ActorRole: e.ActorRole,
			Type:      e.Type,
			Activity:  e.Activity,
			CreatedAt: e.CreatedAt,
		}
	}

	respond.JSON(w, http.StatusOK, resp)
}
