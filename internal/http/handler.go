// Package httpapi is the thin HTTP layer over the lifecycle core. Handlers
// parse requests, resolve the caller's tenant through the authorization gate,
// and delegate; business rules live in the services.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodian/internal/authz"
	"custodian/internal/incident"
	"custodian/internal/lifecycle"
	"custodian/internal/reconcile"
	"custodian/internal/resource/models"
	"custodian/pkg/domain"
	dErrors "custodian/pkg/domain-errors"
	"custodian/pkg/requestcontext"
)

type Handler struct {
	gate      *authz.Service
	resources *lifecycle.Coordinator
	scanner   *reconcile.Scanner
	incidents incident.Store
	logger    *slog.Logger
}

func New(gate *authz.Service, resources *lifecycle.Coordinator, scanner *reconcile.Scanner, incidents incident.Store, logger *slog.Logger) *Handler {
	return &Handler{
		gate:      gate,
		resources: resources,
		scanner:   scanner,
		incidents: incidents,
		logger:    logger,
	}
}

// Register mounts all authenticated routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/authorize", h.handleAuthorize)
	r.Route("/v1/tenants/{tenantID}/resources", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{resourceID}", h.handleGet)
		r.Get("/{resourceID}/blob", h.handleGetBlob)
		r.Delete("/{resourceID}", h.handleDelete)
	})
	r.Post("/v1/admin/reconcile", h.handleReconcile)
	r.Get("/v1/admin/incidents", h.handleListIncidents)
}

type authorizeResponse struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
}

func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	principal, err := h.gate.Authorize(r.Context(), requestcontext.Principal(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, authorizeResponse{
		TenantID: principal.ID.String(),
		Email:    principal.Email,
	})
}

// resolveTenant authorizes the caller and enforces that the tenant in the
// URL is the caller's own namespace. Principals never touch another tenant's
// prefix.
func (h *Handler) resolveTenant(w http.ResponseWriter, r *http.Request) (domain.TenantID, bool) {
	principal, err := h.gate.Authorize(r.Context(), requestcontext.Principal(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return "", false
	}
	requested, err := domain.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		writeError(w, h.logger, err)
		return "", false
	}
	if requested != principal.ID {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return "", false
	}
	return principal.ID, true
}

type createRequest struct {
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields"`
	Blob   *blobPayload   `json:"blob,omitempty"`
}

type blobPayload struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"` // base64
}

type resourceResponse struct {
	*models.Resource
	HasBlob bool `json:"has_blob"`
}

func toResourceResponse(record *models.Resource) resourceResponse {
	return resourceResponse{Resource: record, HasBlob: record.BlobRef != ""}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed request body"))
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	spec := lifecycle.CreateSpec{Kind: kind, Fields: req.Fields}
	if req.Blob != nil {
		data, err := base64.StdEncoding.DecodeString(req.Blob.Data)
		if err != nil {
			writeError(w, h.logger, dErrors.Wrap(err, dErrors.CodeInvalidInput, "blob data must be base64"))
			return
		}
		spec.Blob = &lifecycle.BlobContent{Bytes: data, ContentType: req.Blob.ContentType}
	}

	record, err := h.resources.Create(r.Context(), tenant, spec)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResourceResponse(record))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	var kind models.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		parsed, err := models.ParseKind(raw)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		kind = parsed
	}

	records, err := h.resources.ListByTenant(r.Context(), tenant, kind)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]resourceResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toResourceResponse(record))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) resourceID(w http.ResponseWriter, r *http.Request) (domain.ResourceID, bool) {
	id, err := domain.ParseResourceID(chi.URLParam(r, "resourceID"))
	if err != nil {
		writeError(w, h.logger, err)
		return domain.ResourceID{}, false
	}
	return id, true
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}

	record, err := h.resources.Get(r.Context(), tenant, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toResourceResponse(record))
}

func (h *Handler) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}

	obj, err := h.resources.GetBlob(r.Context(), tenant, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Bytes)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}

	if err := h.resources.Delete(r.Context(), tenant, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reconcileResponse struct {
	RecordsChecked   int `json:"records_checked"`
	BlobsChecked     int `json:"blobs_checked"`
	DanglingRepaired int `json:"dangling_repaired"`
	OrphansDeleted   int `json:"orphans_deleted"`
}

// handleReconcile triggers a reconciliation pass manually, for operational
// tooling and tests.
func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.scanner.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, reconcile.ErrScanInProgress) {
			writeJSON(w, http.StatusConflict, errorResponse{Error: "scan_in_progress"})
			return
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reconcileResponse{
		RecordsChecked:   report.RecordsChecked,
		BlobsChecked:     report.BlobsChecked,
		DanglingRepaired: report.DanglingRepaired,
		OrphansDeleted:   report.OrphansDeleted,
	})
}

func (h *Handler) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.incidents.List(r.Context())
	if err != nil {
		writeError(w, h.logger, dErrors.Wrap(err, dErrors.CodeInternal, "list incidents"))
		return
	}
	writeJSON(w, http.StatusOK, incidents)
}
