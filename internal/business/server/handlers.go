package server

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"html/template"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/oauth-client/internal/flow"
	"github.com/openkcm/oauth-client/internal/serviceerr"
	"github.com/openkcm/oauth-client/internal/session"
)

const (
	homePath = "/"

	// csrfField is the form field carrying the logout token.
	csrfField = "csrfmiddlewaretoken"
)

//go:embed templates/home.html
var homeHTML string

var homeTemplate = template.Must(template.New("home").Parse(homeHTML))

// homePage is the data rendered by the home template.
type homePage struct {
	flow.HomeView

	CSRFField string
	CSRFToken string
}

// flowHandler exposes the flow over HTTP.
type flowHandler struct {
	flow     *flow.Flow
	sessions *session.Manager
}

func (h *flowHandler) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.sessions.Load(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	view, err := h.flow.Home(sess)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	page := homePage{
		HomeView:  view,
		CSRFField: csrfField,
		CSRFToken: h.sessions.CSRFToken(sess),
	}

	var buf bytes.Buffer
	if err := homeTemplate.Execute(&buf, page); err != nil {
		writeError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (h *flowHandler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	authURL, err := h.flow.Login(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *flowHandler) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.sessions.Load(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	q := r.URL.Query()
	err = h.flow.Callback(ctx, sess, flow.CallbackParams{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.sessions.Save(ctx, w, sess); err != nil {
		writeError(ctx, w, err)
		return
	}

	http.Redirect(w, r, homePath, http.StatusFound)
}

func (h *flowHandler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := h.sessions.Load(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	// A session that was never stored has nothing to log out of.
	if sess.Persisted() && !h.sessions.ValidateCSRFToken(r.PostFormValue(csrfField), sess) {
		writeError(ctx, w, serviceerr.ErrInvalidCSRFToken)
		return
	}

	h.flow.Logout(sess)

	if err := h.sessions.Save(ctx, w, sess); err != nil {
		writeError(ctx, w, err)
		return
	}

	http.Redirect(w, r, homePath, http.StatusFound)
}

// writeError answers with the description of a *serviceerr.Error, or with a
// bare 500 for anything else.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var svcErr *serviceerr.Error
	if errors.As(err, &svcErr) {
		slogctx.Info(ctx, "Rejecting request", "error", err)
		http.Error(w, svcErr.Description, svcErr.HTTPStatus())

		return
	}

	slogctx.Error(ctx, "Failed to handle request", "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
