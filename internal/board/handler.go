// handler.go -- Handler and the interfaces it consumes.
package board

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/feedboard/feedboard/internal/auth"
	"github.com/feedboard/feedboard/internal/store"
	"github.com/gofrs/uuid/v5"
)

// Listing caps per page.
const (
	SquareLimit = 50
	MineLimit   = 100
	AdminLimit  = 200
)

// Store defines database operations needed by the board pages.
// Satisfied by *store.PostgresStore.
type Store interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error)
	CountPublicFeedback(ctx context.Context) (int, error)
	ListPublicFeedback(ctx context.Context, query string, limit int) ([]store.Feedback, error)
	ListAllFeedback(ctx context.Context, limit int) ([]store.Feedback, error)
	ListFeedbackByUser(ctx context.Context, userID uuid.UUID, limit int) ([]store.Feedback, error)
	GetFeedbackByID(ctx context.Context, id uuid.UUID) (*store.Feedback, error)
	CreateFeedback(ctx context.Context, id, userID uuid.UUID, title, content string, isPublic bool) error
	CreateReply(ctx context.Context, id, feedbackID uuid.UUID, content string, adminUserID *uuid.UUID) error
	ListReplies(ctx context.Context, feedbackID uuid.UUID) ([]store.Reply, error)
}

// SessionReader resolves the caller's session. Satisfied by *auth.AuthHandler.
type SessionReader interface {
	CurrentSession(r *http.Request) auth.Payload
}

// Handler serves the feedback pages.
// PS, Sessions, and Pages are required.
type Handler struct {
	PS       Store
	Sessions SessionReader
	Pages    *Pages

	// LoginEnabled hides the login link when no provider is configured.
	LoginEnabled bool
	// AdminKeyIsDefault shows a warning banner on the admin page.
	AdminKeyIsDefault bool
}

// view is the data every page template receives.
type view struct {
	Title        string
	Session      auth.Payload
	User         *store.User
	LoginEnabled bool
	Flash        string
	Error        string
	Data         any
}

// newView builds the shared page data for r.
// The user lookup is best effort; a stale uid just renders as signed out.
func (h *Handler) newView(r *http.Request, title string) view {
	sess := h.Sessions.CurrentSession(r)
	v := view{Title: title, Session: sess, LoginEnabled: h.LoginEnabled}
	if uid, ok := sessionUserID(sess); ok {
		u, err := h.PS.GetUserByID(r.Context(), uid)
		if err != nil {
			logDebug(r, "session user lookup failed", "error", err)
		} else {
			v.User = u
		}
	}
	return v
}

// sessionUserID parses the session uid. ok is false for anonymous or malformed uids.
func sessionUserID(p auth.Payload) (uuid.UUID, bool) {
	if !p.Authenticated() {
		return uuid.Nil, false
	}
	id, err := uuid.FromString(p.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// render writes a page, turning template failures into a 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	if err := h.Pages.Render(w, status, page, v); err != nil {
		auth.InternalServerError(w, r, err)
	}
}

// notFound renders the 404 page. Used for missing and hidden feedback alike.
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	v := h.newView(r, "Not found")
	v.Error = "The page you are looking for does not exist."
	h.render(w, r, http.StatusNotFound, "error", v)
}

func logDebug(r *http.Request, msg string, args ...any) {
	slog.Debug(msg, append(auth.RequestAttrs(r), args...)...)
}

func logInfo(r *http.Request, msg string, args ...any) {
	slog.Info(msg, append(auth.RequestAttrs(r), args...)...)
}

func logWarn(r *http.Request, msg string, args ...any) {
	slog.Warn(msg, append(auth.RequestAttrs(r), args...)...)
}
