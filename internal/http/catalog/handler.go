package catalog

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/catalog"
	"github.com/MrJamesThe3rd/registrar/internal/http/respond"
	"github.com/MrJamesThe3rd/registrar/internal/http/session"
	"github.com/MrJamesThe3rd/registrar/internal/identity"
	"github.com/MrJamesThe3rd/registrar/internal/importer"
	"github.com/MrJamesThe3rd/registrar/internal/matching"
)

const maxImportBytes = 10 << 20

// Aliases rewrites price-list names onto catalog credential names.
type Aliases interface {
	Normalize(ctx context.Context, rows []importer.Row) ([]importer.Row, int, error)
	Learn(ctx context.Context, by identity.Actor, pattern, name string) (*matching.Alias, error)
	List(ctx context.Context) ([]*matching.Alias, error)
}

type Handler struct {
	svc     *catalog.Service
	aliases Aliases
}

func NewHandler(svc *catalog.Service, aliases Aliases) *Handler {
	return &Handler{svc: svc, aliases: aliases}
}

func (h *Handler) CredentialRoutes(r chi.Router) {
	r.Get("/", h.listCredentials)
	r.Get("/{id}", h.getCredential)

	admin := r.With(session.RequireRole(identity.RoleAdmin))
	admin.Post("/", h.createCredential)
	admin.Put("/{id}", h.updateCredential)
	admin.Delete("/{id}", h.deleteCredential)
	admin.Post("/import", h.importCredentials)
	admin.Get("/aliases", h.listAliases)
	admin.Post("/aliases", h.createAlias)
}

func (h *Handler) PackageRoutes(r chi.Router) {
	r.Get("/", h.listPackages)
	r.Get("/{id}", h.getPackage)

	admin := r.With(session.RequireRole(identity.RoleAdmin))
	admin.Post("/", h.createPackage)
	admin.Put("/{id}", h.updatePackage)
	admin.Delete("/{id}", h.deletePackage)
}

type credentialRequest struct {
	Name  string `json:"name" validate:"notblank,max=120"`
	Price int64  `json:"price" validate:"gte=0"`
}

func (h *Handler) listCredentials(w http.ResponseWriter, r *http.Request) {
	credentials, err := h.svc.ListCredentials(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]credentialResponse, len(credentials))
	for i, c := range credentials {
		resp[i] = toCredentialResponse(c)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) getCredential(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	c, err := h.svc.GetCredential(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toCredentialResponse(c))
}

func (h *Handler) createCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	c, err := h.svc.CreateCredential(r.Context(), session.Actor(r), catalog.CredentialParams{Name: req.Name, Price: req.Price})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toCredentialResponse(c))
}

func (h *Handler) updateCredential(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req credentialRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	c, err := h.svc.UpdateCredential(r.Context(), session.Actor(r), id, catalog.CredentialParams{Name: req.Name, Price: req.Price})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toCredentialResponse(c))
}

func (h *Handler) deleteCredential(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.DeleteCredential(r.Context(), session.Actor(r), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}

// importCredentials upserts every row of an uploaded price list.
func (h *Handler) importCredentials(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		respond.Error(w, r, apperr.Invalid("failed to parse form: %v", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, r, apperr.Invalid("file field is required"))
		return
	}
	defer file.Close()

	rows, err := importer.Parse(file)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	rows, renamed, err := h.aliases.Normalize(r.Context(), rows)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	params := make([]catalog.CredentialParams, len(rows))
	for i, row := range rows {
		params[i] = catalog.CredentialParams{Name: row.Name, Price: row.Price}
	}

	result, err := h.svc.ImportCredentials(r.Context(), session.Actor(r), params)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, importResponse{
		Created: result.Created,
		Updated: result.Updated,
		Renamed: renamed,
	})
}

type aliasRequest struct {
	Pattern string `json:"pattern" validate:"notblank,max=120"`
	Name    string `json:"name" validate:"notblank,max=120"`
}

func (h *Handler) listAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := h.aliases.List(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]aliasResponse, len(aliases))
	for i, a := range aliases {
		resp[i] = aliasResponse{Pattern: a.Pattern, Name: a.Name, CreatedAt: a.CreatedAt}
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) createAlias(w http.ResponseWriter, r *http.Request) {
	var req aliasRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	a, err := h.aliases.Learn(r.Context(), session.Actor(r), req.Pattern, req.Name)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, aliasResponse{Pattern: a.Pattern, Name: a.Name, CreatedAt: a.CreatedAt})
}

type contentRequest struct {
	CredentialID uuid.UUID `json:"credential_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"gte=1"`
}

type packageRequest struct {
	Name        string           `json:"name" validate:"notblank,max=120"`
	Description string           `json:"description,omitempty" validate:"max=500"`
	Contents    []contentRequest `json:"contents" validate:"required,min=1,dive"`
}

func (req packageRequest) params() catalog.PackageParams {
	params := catalog.PackageParams{
		Name:        req.Name,
		Description: req.Description,
		Contents:    make([]catalog.ContentParams, len(req.Contents)),
	}

	for i, c := range req.Contents {
		params.Contents[i] = catalog.ContentParams{CredentialID: c.CredentialID, Quantity: c.Quantity}
	}

	return params
}

func (h *Handler) listPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.svc.ListPackages(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	resp := make([]packageResponse, len(packages))
	for i, p := range packages {
		resp[i] = toPackageResponse(p)
	}

	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) getPackage(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	p, err := h.svc.GetPackage(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toPackageResponse(p))
}

func (h *Handler) createPackage(w http.ResponseWriter, r *http.Request) {
	var req packageRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	p, err := h.svc.CreatePackage(r.Context(), session.Actor(r), req.params())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, toPackageResponse(p))
}

func (h *Handler) updatePackage(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req packageRequest
	if err := respond.Decode(r.Body, &req); err != nil {
		respond.Error(w, r, err)
		return
	}

	p, err := h.svc.UpdatePackage(r.Context(), session.Actor(r), id, req.params())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, toPackageResponse(p))
}

func (h *Handler) deletePackage(w http.ResponseWriter, r *http.Request) {
	id, err := respond.ParseUUID("id", chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if err := h.svc.DeletePackage(r.Context(), session.Actor(r), id); err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.NoContent(w)
}
