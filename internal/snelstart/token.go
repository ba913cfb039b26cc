package snelstart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenStatus is the queryable freshness of the upstream credential.
type TokenStatus struct {
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TokenSource exchanges the SnelStart integration key for a bearer token and
// tracks its expiry. It does not schedule refreshes itself: the caller polls
// Status and calls Refresh. A lapsed token is still handed out by Token so the
// resulting upstream 401 surfaces through the normal submission error channel.
type TokenSource struct {
	httpClient     *http.Client
	tokenURL       string
	integrationKey string

	// A token within this window of its expiry is reported as stale.
	expirySkew time.Duration

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewTokenSource(tokenURL, integrationKey string, timeout time.Duration) *TokenSource {
	return &TokenSource{
		httpClient:     &http.Client{Timeout: timeout},
		tokenURL:       tokenURL,
		integrationKey: integrationKey,
		expirySkew:     30 * time.Second,
	}
}

func (t *TokenSource) Status() TokenStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accessToken == "" {
		return TokenStatus{Valid: false}
	}

	expires := t.expiresAt
	return TokenStatus{
		Valid:     time.Now().Before(expires.Add(-t.expirySkew)),
		ExpiresAt: &expires,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Refresh exchanges the integration key for a fresh bearer token.
func (t *TokenSource) Refresh(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "clientkey")
	form.Set("clientkey", t.integrationKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: "token refresh rejected"}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	t.mu.Lock()
	t.accessToken = tr.AccessToken
	t.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	t.mu.Unlock()

	return nil
}

// Token returns the current bearer token, fetching one on first use. It never
// refreshes a stale token on its own.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	token := t.accessToken
	t.mu.Unlock()

	if token != "" {
		return token, nil
	}

	if err := t.Refresh(ctx); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accessToken, nil
}
