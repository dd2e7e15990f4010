// Package oauth talks to the authorization server: it builds the
// authorization redirect, exchanges codes for tokens and calls the
// identity endpoint.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/openkcm/oauth-client/internal/config"
)

const maxBodySize = 1 << 20

// UpstreamError is returned when the authorization server answers with a
// non-2xx status.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

type Client struct {
	cfg        config.OAuth
	httpClient *http.Client
}

// NewClient creates a client. When httpClient is nil a client with the
// configured timeout is used.
func NewClient(cfg config.OAuth, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
	}
}

// AuthorizeURL returns the URL the browser is sent to for the given state.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("scope", c.cfg.Scope)
	q.Set("state", state)

	return c.cfg.AuthorizeURL() + "?" + q.Encode()
}

// ExchangeCode redeems an authorization code. The token response is
// returned verbatim and is guaranteed to be a JSON object.
func (c *Client) ExchangeCode(ctx context.Context, code string) (json.RawMessage, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", c.cfg.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if err := ensureObject(body); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	return body, nil
}

// FetchIdentity calls the identity endpoint on behalf of the token owner.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.IdentityURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, errors.New("decoding identity response: invalid JSON")
	}

	return body, nil
}

// AccessToken extracts the access_token field of a token response.
func AccessToken(token json.RawMessage) (string, error) {
	var fields struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(token, &fields); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	if fields.AccessToken == "" {
		return "", errors.New("token response has no access_token")
	}

	return fields.AccessToken, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return bytes.TrimSpace(body), nil
}

func ensureObject(body []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return err
	}

	if obj == nil {
		return errors.New("not a JSON object")
	}

	return nil
}
