// home_handler.go -- Home and admin entry pages.
package board

import (
	"net/http"

	"github.com/feedboard/feedboard/internal/auth"
	"github.com/feedboard/feedboard/internal/store"
)

// loginMessages maps the /?login= flags set by the OAuth callback.
var loginMessages = map[string]string{
	auth.LoginMissingCode: "Login failed: the provider did not return an authorization code.",
	auth.LoginBadState:    "Login failed: the login request expired or was tampered with. Please try again.",
	auth.LoginFailed:      "Login failed. Please try again later.",
}

type homeData struct {
	PublicCount int
}

type adminData struct {
	DefaultKey bool
	Items      []store.Feedback
}

// Home handles GET /.
// A failed count is logged and rendered as zero; the home page never 500s on it.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	v := h.newView(r, "Feedback")

	count, err := h.PS.CountPublicFeedback(r.Context())
	if err != nil {
		logWarn(r, "counting public feedback failed", "error", err)
	}
	v.Data = homeData{PublicCount: count}

	q := r.URL.Query()
	if msg, ok := loginMessages[q.Get("login")]; ok {
		v.Error = msg
	} else if q.Get("need_login") == "1" {
		v.Flash = "Please log in first."
	}

	h.render(w, r, http.StatusOK, "home", v)
}

// AdminPage handles GET /admin.
// Non-admins get the key form; admins get every feedback, private included.
func (h *Handler) AdminPage(w http.ResponseWriter, r *http.Request) {
	v := h.newView(r, "Admin")
	if r.URL.Query().Get("bad") == "1" {
		v.Error = "Wrong key."
	}

	data := adminData{DefaultKey: h.AdminKeyIsDefault}
	if v.Session.IsAdmin {
		items, err := h.PS.ListAllFeedback(r.Context(), AdminLimit)
		if err != nil {
			auth.InternalServerError(w, r, err)
			return
		}
		data.Items = items
	}
	v.Data = data

	h.render(w, r, http.StatusOK, "admin", v)
}
