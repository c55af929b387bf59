// feedback_handler.go -- Square, detail, reply, new, and "mine" pages.
package board

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/feedboard/feedboard/internal/auth"
	"github.com/feedboard/feedboard/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

type listData struct {
	Query string
	Items []store.Feedback
}

type detailData struct {
	Item     *store.Feedback
	Replies  []store.Reply
	CanReply bool
}

// Square handles GET /square?q=. Lists public feedback, newest first.
func (h *Handler) Square(w http.ResponseWriter, r *http.Request) {
	v := h.newView(r, "Square")
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	items, err := h.PS.ListPublicFeedback(r.Context(), q, SquareLimit)
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	v.Data = listData{Query: q, Items: items}

	h.render(w, r, http.StatusOK, "square", v)
}

// Detail handles GET /square/{id}.
// Private feedback is visible to its author and admins only; everyone else gets 404.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := feedbackID(r)
	if !ok {
		h.notFound(w, r)
		return
	}

	item, err := h.PS.GetFeedbackByID(r.Context(), id)
	if errors.Is(err, pgx.ErrNoRows) {
		h.notFound(w, r)
		return
	}
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	v := h.newView(r, item.Title)
	if !canSee(v.Session, item) {
		logDebug(r, "hidden feedback requested", "feedback_id", id.String())
		h.notFound(w, r)
		return
	}

	replies, err := h.PS.ListReplies(r.Context(), id)
	if err != nil {
		logWarn(r, "listing replies failed", "feedback_id", id.String(), "error", err)
	}
	if r.URL.Query().Get("reply_error") == "1" {
		v.Error = "Reply failed: content must be between 1 and 20000 characters."
	}
	v.Data = detailData{Item: item, Replies: replies, CanReply: v.Session.IsAdmin}

	h.render(w, r, http.StatusOK, "detail", v)
}

// CreateReply handles POST /square/{id}/reply. Admin only; 404 otherwise.
// Invalid content or a failed insert bounces back with ?reply_error=1.
func (h *Handler) CreateReply(w http.ResponseWriter, r *http.Request) {
	sess := h.Sessions.CurrentSession(r)
	if !sess.IsAdmin {
		h.notFound(w, r)
		return
	}
	id, ok := feedbackID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	back := "/square/" + id.String()

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, back+"?reply_error=1", http.StatusFound)
		return
	}
	content := strings.TrimSpace(r.PostFormValue("content"))
	if !validLength(content, store.MaxContentLen) {
		http.Redirect(w, r, back+"?reply_error=1", http.StatusFound)
		return
	}

	if _, err := h.PS.GetFeedbackByID(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.notFound(w, r)
			return
		}
		auth.InternalServerError(w, r, err)
		return
	}

	replyID, err := uuid.NewV7()
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	// Admin escalation does not require a login, so the author may be unknown.
	var adminUserID *uuid.UUID
	if uid, ok := sessionUserID(sess); ok {
		adminUserID = &uid
	}

	if err := h.PS.CreateReply(r.Context(), replyID, id, content, adminUserID); err != nil {
		logWarn(r, "creating reply failed", "feedback_id", id.String(), "error", err)
		http.Redirect(w, r, back+"?reply_error=1", http.StatusFound)
		return
	}

	logInfo(r, "reply created", "feedback_id", id.String(), "reply_id", replyID.String())
	http.Redirect(w, r, back, http.StatusFound)
}

// NewForm handles GET /new.
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	v := h.newView(r, "New feedback")
	if _, ok := sessionUserID(v.Session); !ok {
		http.Redirect(w, r, "/?need_login=1", http.StatusFound)
		return
	}
	if r.URL.Query().Get("error") == "1" {
		v.Error = "Title must be 1 to 80 characters and content 1 to 20000 characters."
	}
	h.render(w, r, http.StatusOK, "new", v)
}

// CreateFeedback handles POST /new.
// Public feedback lands on its detail page; private feedback lands on /me.
func (h *Handler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	uid, ok := sessionUserID(h.Sessions.CurrentSession(r))
	if !ok {
		http.Redirect(w, r, "/?need_login=1", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/new?error=1", http.StatusFound)
		return
	}
	title := strings.TrimSpace(r.PostFormValue("title"))
	content := strings.TrimSpace(r.PostFormValue("content"))
	visibility := r.PostFormValue("visibility")

	if !validLength(title, store.MaxTitleLen) || !validLength(content, store.MaxContentLen) ||
		(visibility != "public" && visibility != "private") {
		logDebug(r, "feedback rejected", "reason", "invalid_input")
		http.Redirect(w, r, "/new?error=1", http.StatusFound)
		return
	}
	isPublic := visibility == "public"

	id, err := uuid.NewV7()
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	if err := h.PS.CreateFeedback(r.Context(), id, uid, title, content, isPublic); err != nil {
		auth.InternalServerError(w, r, err)
		return
	}

	logInfo(r, "feedback created", "feedback_id", id.String(), "public", isPublic)
	if isPublic {
		http.Redirect(w, r, "/square/"+id.String(), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/me", http.StatusFound)
}

// Mine handles GET /me. Lists the caller's own feedback, private included.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	v := h.newView(r, "My feedback")
	uid, ok := sessionUserID(v.Session)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	items, err := h.PS.ListFeedbackByUser(r.Context(), uid, MineLimit)
	if err != nil {
		auth.InternalServerError(w, r, err)
		return
	}
	v.Data = listData{Items: items}

	h.render(w, r, http.StatusOK, "me", v)
}

// feedbackID parses the {id} route param.
func feedbackID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// canSee reports whether sess may view f.
func canSee(sess auth.Payload, f *store.Feedback) bool {
	if f.IsPublic || sess.IsAdmin {
		return true
	}
	return sess.Authenticated() && sess.UserID == f.UserID.String()
}

// validLength reports whether s has 1..limit characters.
func validLength(s string, limit int) bool {
	n := utf8.RuneCountInString(s)
	return n >= 1 && n <= limit
}
