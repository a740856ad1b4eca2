package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/internal/view"
)

// Directory is the part of Service used by Handler.
type Directory interface {
	ListUsers(ctx context.Context) ([]User, error)
	Principal(ctx context.Context, userID int64) (*User, error)
}

// Handler serves the account listing for administrators.
type Handler struct {
	logger    *slog.Logger
	service   Directory
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service Directory, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	me, err := h.service.Principal(r.Context(), shared.CurrentUserID(r.Context()))
	if err != nil {
		h.logger.Error("resolve user", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if me == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	if !me.IsAdmin() {
		h.redirectWithFlash(w, r, "/", "error", "Only administrators can view user accounts.")
		return
	}
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, me, "pages/users_list.html", map[string]any{"Users": list}, http.StatusOK)
}

// ListUsersForTest exposes the list handler for tests.
func (h *Handler) ListUsersForTest(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, me *User, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Users",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Viewer: &view.Viewer{
			ID:            me.ID,
			Username:      me.Username,
			IsAdmin:       me.IsAdmin(),
			CanManagePOAM: CheckPOAMAccess(me).Allowed,
		},
		Data: data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
