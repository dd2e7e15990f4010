// Package flow implements the browser side of the OAuth2 authorization code
// grant: starting a login, handling the callback, rendering the result and
// logging out.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/oauth-client/internal/config"
	"github.com/openkcm/oauth-client/internal/oauth"
	"github.com/openkcm/oauth-client/internal/oauthstate"
	"github.com/openkcm/oauth-client/internal/serviceerr"
	"github.com/openkcm/oauth-client/internal/session"
)

const identityFailedMessage = "API call failed"

// Session is the per-browser storage the flow reads and writes.
type Session interface {
	Get(key string, into any) (bool, error)
	Set(key string, value any) error
	Clear()
}

// CallbackParams are the query parameters of the authorization callback.
type CallbackParams struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
}

// IdentityError replaces the identity document when the identity endpoint fails.
type IdentityError struct {
	Error      string `json:"error"`
	Details    string `json:"details"`
	StatusCode int    `json:"status_code"`
}

// HomeView is the data shown on the home page. Token and APIResponse hold
// indented JSON and are empty when the session has no such value.
type HomeView struct {
	ServerURL   string
	Scope       string
	Token       string
	APIResponse string
}

type Flow struct {
	cfg    config.OAuth
	states *oauthstate.Manager
	client *oauth.Client
}

func New(cfg config.OAuth, states *oauthstate.Manager, client *oauth.Client) *Flow {
	return &Flow{
		cfg:    cfg,
		states: states,
		client: client,
	}
}

// Login issues a new state and returns the authorization URL to redirect to.
func (f *Flow) Login(ctx context.Context) (string, error) {
	state, err := f.states.Issue(ctx)
	if err != nil {
		return "", fmt.Errorf("issuing state: %w", err)
	}

	slogctx.Debug(ctx, "Issued authorization state")

	return f.client.AuthorizeURL(state), nil
}

// Callback completes a login. Errors of type *serviceerr.Error are meant for
// the caller; any other error is a server fault.
func (f *Flow) Callback(ctx context.Context, sess Session, p CallbackParams) error {
	if err := f.states.Consume(ctx, p.State); err != nil {
		return err
	}

	if p.Error != "" {
		slogctx.Warn(ctx, "Authorization server reported an error",
			"oauth_error", p.Error,
			"oauth_error_description", p.ErrorDescription,
		)
	}

	if p.Code == "" {
		return serviceerr.ErrMissingCode
	}

	token, err := f.client.ExchangeCode(ctx, p.Code)
	if err != nil {
		var upstreamErr *oauth.UpstreamError
		if errors.As(err, &upstreamErr) {
			slogctx.Error(ctx, "Token exchange failed",
				"status_code", upstreamErr.StatusCode,
				"body", upstreamErr.Body,
			)
			return serviceerr.TokenExchangeFailed(upstreamErr.Body)
		}

		return fmt.Errorf("exchanging code for tokens: %w", err)
	}

	accessToken, err := oauth.AccessToken(token)
	if err != nil {
		return err
	}

	if err := sess.Set(session.KeyToken, token); err != nil {
		return err
	}

	slogctx.Info(ctx, "Exchanged the auth code for tokens")

	identity, err := f.client.FetchIdentity(ctx, accessToken)
	if err != nil {
		var upstreamErr *oauth.UpstreamError
		if !errors.As(err, &upstreamErr) {
			return fmt.Errorf("fetching identity: %w", err)
		}

		slogctx.Warn(ctx, "Identity request failed", "status_code", upstreamErr.StatusCode)

		return sess.Set(session.KeyAPIResponse, IdentityError{
			Error:      identityFailedMessage,
			Details:    upstreamErr.Body,
			StatusCode: upstreamErr.StatusCode,
		})
	}

	return sess.Set(session.KeyAPIResponse, identity)
}

// Home collects what the home page shows.
func (f *Flow) Home(sess Session) (HomeView, error) {
	token, err := prettyValue(sess, session.KeyToken)
	if err != nil {
		return HomeView{}, err
	}

	apiResponse, err := prettyValue(sess, session.KeyAPIResponse)
	if err != nil {
		return HomeView{}, err
	}

	return HomeView{
		ServerURL:   f.cfg.ServerURL,
		Scope:       f.cfg.Scope,
		Token:       token,
		APIResponse: apiResponse,
	}, nil
}

// Logout forgets everything the session holds.
func (f *Flow) Logout(sess Session) {
	sess.Clear()
}

func prettyValue(sess Session, key string) (string, error) {
	var raw json.RawMessage
	found, err := sess.Get(key, &raw)
	if err != nil {
		return "", err
	}
	if !found || isEmptyValue(raw) {
		return "", nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("indenting %s: %w", key, err)
	}

	return buf.String(), nil
}

// isEmptyValue reports whether raw is null, false, zero, "" or an empty
// array or object. Such values are not shown.
func isEmptyValue(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}

	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}

	return false
}
