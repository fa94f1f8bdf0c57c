// internal/common/auth/provider.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenProvider supplies a currently-valid bearer credential. The provider
// may refresh the underlying token transparently between calls; callers must
// not cache the returned value beyond a single request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenResponse holds the response from the session provider's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// refreshSkew renews the token slightly before its reported expiry so a
// request issued right at the boundary never carries a stale credential.
const refreshSkew = 30 * time.Second

// OAuthProvider fetches and caches a token via the client credentials flow.
// Safe for concurrent use by all network-issuing components.
type OAuthProvider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewOAuthProvider creates a new OAuthProvider.
func NewOAuthProvider(tokenURL, clientID, clientSecret string) *OAuthProvider {
	return &OAuthProvider{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns the cached access token, refreshing it when expired.
func (p *OAuthProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && p.tokenExpiry.After(time.Now().Add(refreshSkew)) {
		return p.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", p.clientID)
	data.Set("client_secret", p.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty access token")
	}

	p.accessToken = tokenResp.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return p.accessToken, nil
}

// StaticProvider returns a fixed token. Used by tests and the CLI when a
// pre-issued session token is supplied directly.
type StaticProvider struct {
	Value string
}

func (p StaticProvider) Token(ctx context.Context) (string, error) {
	if p.Value == "" {
		return "", fmt.Errorf("no session token configured")
	}
	return p.Value, nil
}
