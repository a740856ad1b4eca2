package grchttp

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/grcdash/grcdash/internal/shared"
	"github.com/grcdash/grcdash/internal/users"
	"github.com/grcdash/grcdash/internal/view"
)

type principalKey struct{}

func withPrincipal(ctx context.Context, u *users.User) context.Context {
	return context.WithValue(ctx, principalKey{}, u)
}

func principalFrom(ctx context.Context) *users.User {
	u, _ := ctx.Value(principalKey{}).(*users.User)
	return u
}

func viewerFor(u *users.User) *view.Viewer {
	if u == nil {
		return nil
	}
	return &view.Viewer{
		ID:            u.ID,
		Username:      u.Username,
		IsAdmin:       u.IsAdmin(),
		CanManagePOAM: users.CheckPOAMAccess(u).Allowed,
	}
}

func loginURL(r *http.Request) string {
	return "/auth/login?next=" + url.QueryEscape(r.URL.RequestURI())
}

// RequireLogin resolves the session user and redirects anonymous requests
// to the login page.
func (h *Handler) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.SessionFromContext(r.Context()).UserID()
		if !ok {
			http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
			return
		}
		u, err := h.users.Principal(r.Context(), id)
		if err != nil {
			h.logger.Error("resolve principal", slog.Int64("user_id", id), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if u == nil {
			http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), u)))
	})
}

// RequirePOAMManager lets only administrators and Security department
// members reach PO&AM mutations. Others are sent back to the issue list
// with an error flash.
func (h *Handler) RequirePOAMManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := users.CheckPOAMAccess(principalFrom(r.Context()))
		switch {
		case decision.Allowed:
			next.ServeHTTP(w, r)
		case decision.Reason == users.ReasonUnauthenticated:
			http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
		default:
			h.logger.Info("po&am access denied", slog.Int64("user_id", actorID(r.Context())), slog.String("path", r.URL.Path))
			h.redirectWithFlash(w, r, "/issues", "error", decision.Message)
		}
	})
}
