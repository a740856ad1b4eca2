// Package grchttp serves the GRC dashboard pages and the heatmap API.
package grchttp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/grcdash/grcdash/internal/grc"
	"github.com/grcdash/grcdash/internal/platform/filestore"
	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/internal/users"
	"github.com/grcdash/grcdash/internal/view"
)

// DefaultMaxUploadBytes bounds evidence and artifact uploads when no limit
// is configured.
const DefaultMaxUploadBytes = 25 << 20

// Service is the GRC behaviour the handlers depend on.
type Service interface {
	Dashboard(ctx context.Context) (grc.Dashboard, error)

	ListDepartments(ctx context.Context) ([]grc.Department, error)
	GetDepartment(ctx context.Context, id int64) (grc.Department, error)
	CreateDepartment(ctx context.Context, actor int64, in grc.DepartmentInput) (grc.Department, error)
	UpdateDepartment(ctx context.Context, actor, id int64, in grc.DepartmentInput) error
	DeleteDepartment(ctx context.Context, actor, id int64) error

	ListRisks(ctx context.Context, f grc.RiskFilter) ([]grc.Risk, error)
	GetRisk(ctx context.Context, id int64) (grc.Risk, error)
	RiskHeatmap(ctx context.Context) ([]grc.HeatmapPoint, error)
	CreateRisk(ctx context.Context, actor int64, in grc.RiskInput, evidence *grc.Upload) (grc.Risk, error)
	UpdateRisk(ctx context.Context, actor, id int64, in grc.RiskInput) error
	DeleteRisk(ctx context.Context, actor, id int64) error
	AttachRiskEvidence(ctx context.Context, actor, riskID int64, up grc.Upload) (grc.Risk, error)
	RemoveRiskEvidence(ctx context.Context, actor, riskID int64) (grc.Risk, error)
	OpenRiskEvidence(ctx context.Context, riskID int64) (io.ReadCloser, filestore.Object, error)

	ListFrameworks(ctx context.Context) ([]grc.Framework, error)
	GetFramework(ctx context.Context, id int64) (grc.Framework, error)
	CreateFramework(ctx context.Context, actor int64, in grc.FrameworkInput) (grc.Framework, error)
	UpdateFramework(ctx context.Context, actor, id int64, in grc.FrameworkInput) error
	DeleteFramework(ctx context.Context, actor, id int64) error

	ListControls(ctx context.Context, f grc.ControlFilter) ([]grc.Control, error)
	GetControl(ctx context.Context, id int64) (grc.Control, error)
	CreateControl(ctx context.Context, actor int64, in grc.ControlInput) (grc.Control, error)
	UpdateControl(ctx context.Context, actor, id int64, in grc.ControlInput) error
	DeleteControl(ctx context.Context, actor, id int64) error

	ListAudits(ctx context.Context, f grc.AuditFilter) ([]grc.Audit, error)
	GetAudit(ctx context.Context, id int64) (grc.Audit, error)
	CreateAudit(ctx context.Context, actor int64, in grc.AuditInput) (grc.Audit, error)
	UpdateAudit(ctx context.Context, actor, id int64, in grc.AuditInput) error
	DeleteAudit(ctx context.Context, actor, id int64) error

	ListIssues(ctx context.Context, f grc.IssueFilter) ([]grc.Issue, error)
	GetIssue(ctx context.Context, id int64) (grc.Issue, error)
	CreateIssue(ctx context.Context, actor int64, in grc.IssueInput) (grc.Issue, error)
	UpdateIssue(ctx context.Context, actor, id int64, in grc.IssueInput) error
	DeleteIssue(ctx context.Context, actor, id int64) error

	ListArtifacts(ctx context.Context, f grc.ArtifactFilter) ([]grc.Artifact, error)
	GetArtifact(ctx context.Context, id int64) (grc.Artifact, error)
	UploadArtifact(ctx context.Context, actor int64, in grc.ArtifactInput, up grc.Upload) (grc.Artifact, error)
	UpdateArtifact(ctx context.Context, actor, id int64, in grc.ArtifactInput) error
	DeleteArtifact(ctx context.Context, actor, id int64) error
	OpenArtifact(ctx context.Context, id int64) (io.ReadCloser, grc.Artifact, error)
}

// Handler wires HTTP endpoints for the GRC records.
type Handler struct {
	logger    *slog.Logger
	service   Service
	users     users.Directory
	templates *view.Engine
	csrf      *shared.CSRFManager
	maxUpload int64
	now       func() time.Time
}

// NewHandler constructs a Handler. maxUpload <= 0 selects
// DefaultMaxUploadBytes.
func NewHandler(logger *slog.Logger, service Service, directory users.Directory, templates *view.Engine, csrf *shared.CSRFManager, maxUpload int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Handler{logger: logger, service: service, users: directory, templates: templates, csrf: csrf, maxUpload: maxUpload, now: time.Now}
}

func (h *Handler) today() time.Time {
	y, m, d := h.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MountRoutes registers the dashboard, record and API routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.RequireLogin)
		r.Get("/", h.dashboard)
		r.Get("/api/risk-heatmap", h.riskHeatmap)

		r.Route("/risks", func(r chi.Router) {
			r.Get("/", h.listRisks)
			r.Get("/new", h.newRisk)
			r.Post("/new", h.createRisk)
			r.Get("/{id}/edit", h.editRisk)
			r.Post("/{id}/edit", h.updateRisk)
			r.Get("/{id}/delete", h.confirmDeleteRisk)
			r.Post("/{id}/delete", h.deleteRisk)
			r.Post("/{id}/evidence", h.attachEvidence)
			r.Post("/{id}/evidence/delete", h.removeEvidence)
			r.Get("/{id}/evidence/download", h.downloadEvidence)
		})
		r.Route("/compliance", func(r chi.Router) {
			r.Get("/", h.listControls)
			r.Get("/new", h.newControl)
			r.Post("/new", h.createControl)
			r.Get("/{id}/edit", h.editControl)
			r.Post("/{id}/edit", h.updateControl)
			r.Get("/{id}/delete", h.confirmDeleteControl)
			r.Post("/{id}/delete", h.deleteControl)
		})
		r.Route("/frameworks", func(r chi.Router) {
			r.Get("/", h.listFrameworks)
			r.Get("/new", h.newFramework)
			r.Post("/new", h.createFramework)
			r.Get("/{id}/edit", h.editFramework)
			r.Post("/{id}/edit", h.updateFramework)
			r.Get("/{id}/delete", h.confirmDeleteFramework)
			r.Post("/{id}/delete", h.deleteFramework)
		})
		r.Route("/departments", func(r chi.Router) {
			r.Get("/", h.listDepartments)
			r.Get("/new", h.newDepartment)
			r.Post("/new", h.createDepartment)
			r.Get("/{id}/edit", h.editDepartment)
			r.Post("/{id}/edit", h.updateDepartment)
			r.Get("/{id}/delete", h.confirmDeleteDepartment)
			r.Post("/{id}/delete", h.deleteDepartment)
		})
		r.Route("/audits", func(r chi.Router) {
			r.Get("/", h.listAudits)
			r.Get("/new", h.newAudit)
			r.Post("/new", h.createAudit)
			r.Get("/{id}/edit", h.editAudit)
			r.Post("/{id}/edit", h.updateAudit)
			r.Get("/{id}/delete", h.confirmDeleteAudit)
			r.Post("/{id}/delete", h.deleteAudit)
		})
		r.Route("/issues", func(r chi.Router) {
			r.Get("/", h.listIssues)
			r.Group(func(r chi.Router) {
				r.Use(h.RequirePOAMManager)
				r.Get("/new", h.newIssue)
				r.Post("/new", h.createIssue)
				r.Get("/{id}/edit", h.editIssue)
				r.Post("/{id}/edit", h.updateIssue)
				r.Get("/{id}/delete", h.confirmDeleteIssue)
				r.Post("/{id}/delete", h.deleteIssue)
			})
		})
		r.Route("/artifacts", func(r chi.Router) {
			r.Get("/", h.listArtifacts)
			r.Get("/new", h.newArtifact)
			r.Post("/new", h.uploadArtifact)
			r.Get("/{id}/edit", h.editArtifact)
			r.Post("/{id}/edit", h.updateArtifact)
			r.Get("/{id}/download", h.downloadArtifact)
			r.Get("/{id}/delete", h.confirmDeleteArtifact)
			r.Post("/{id}/delete", h.deleteArtifact)
		})
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Viewer:      viewerFor(principalFrom(r.Context())),
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, "pages/error.html", http.StatusText(status), map[string]any{
		"Status":  status,
		"Message": message,
	}, status)
}

// fail maps service errors that are not form validation failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, grc.ErrNotFound):
		h.errorPage(w, r, http.StatusNotFound, "The requested record does not exist.")
	case errors.Is(err, errBadFilter):
		h.errorPage(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		h.errorPage(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

// pathID reads the {id} route parameter. A malformed id is a missing record.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.errorPage(w, r, http.StatusNotFound, "The requested record does not exist.")
		return 0, false
	}
	return id, true
}

func actorID(ctx context.Context) int64 {
	if u := principalFrom(ctx); u != nil {
		return u.ID
	}
	return 0
}
