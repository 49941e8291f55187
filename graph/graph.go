// Package graph wraps authenticated calls to a Microsoft Graph-style
// resource API. It obtains a valid delegated token through the manager's
// status evaluation (which silently refreshes when needed) and falls back to
// an app-only client-credentials token when no delegated token exists, so
// organization-wide data can still be served.
package graph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
	"golang.org/x/time/rate"

	graphauth "github.com/pilr/team-summary-sub000"
	"github.com/pilr/team-summary-sub000/instrumentation"
	"github.com/pilr/team-summary-sub000/provider"
)

// DefaultBaseURL is the Microsoft Graph v1.0 endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// Graph allows ~10,000 requests per 10 minutes; these conservative defaults
// stay well under the quota.
const (
	defaultRequestsPerSecond = 10.0
	defaultBurstSize         = 15
)

// Client calls the resource API on behalf of principals.
type Client struct {
	manager    *graphauth.Manager
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	inst       *instrumentation.Instrumentation

	// appSource caches app-only tokens independently of delegated ones.
	// clientcredentials reuses tokens until expiry. Nil when no app
	// credentials are configured.
	appSource oauth2.TokenSource
}

// Config holds resource API client configuration.
type Config struct {
	// BaseURL is the resource API base URL. Default: DefaultBaseURL.
	BaseURL string

	// AppCredentials is the application registration used for the app-only
	// fallback. Leave incomplete to disable the fallback.
	AppCredentials provider.Credentials

	// TokenURL overrides the client-credentials token endpoint (tests only).
	TokenURL string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// RequestsPerSecond and BurstSize tune request throttling.
	RequestsPerSecond float64
	BurstSize         int

	// Logger for structured logging.
	Logger *slog.Logger
}

// Response is the raw result of a resource API call.
type Response struct {
	// StatusCode is the HTTP status.
	StatusCode int

	// Body is the raw response body.
	Body []byte

	// Delegated reports whether the call used the principal's delegated
	// token (true) or the app-only fallback (false).
	Delegated bool
}

// NewClient creates a resource API client.
func NewClient(manager *graphauth.Manager, cfg *Config) (*Client, error) {
	if manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = defaultRequestsPerSecond
	}
	burst := cfg.BurstSize
	if burst == 0 {
		burst = defaultBurstSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		manager:    manager,
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger,
	}

	if cfg.AppCredentials.Complete() {
		client.appSource = appTokenSource(cfg.AppCredentials, cfg.TokenURL, baseURL, httpClient)
	}

	return client, nil
}

// SetInstrumentation wires OpenTelemetry instrumentation. Optional.
func (c *Client) SetInstrumentation(inst *instrumentation.Instrumentation) {
	c.inst = inst
}

// appTokenSource builds a cached client-credentials token source. The
// /.default scope grants whatever application permissions were consented.
func appTokenSource(creds provider.Credentials, tokenURL, baseURL string, httpClient *http.Client) oauth2.TokenSource {
	if tokenURL == "" {
		tokenURL = microsoft.AzureADEndpoint(creds.Tenant).TokenURL
	}

	scope := strings.TrimSuffix(baseURL, "/v1.0") + "/.default"
	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{scope},
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	return cc.TokenSource(ctx)
}

// Call performs an authenticated request against the resource API.
//
// When the principal is connected (possibly after a silent refresh inside
// Status), the delegated token is attached. Otherwise the app-only fallback
// serves the call, if configured.
//
// A 401 with a locally unexpired token means server-side revocation and maps
// to TokenRejectedByProvider without a refresh retry. A 403 is returned with
// the raw provider body intact so upstream diagnostics can distinguish
// missing consent from external-principal restrictions from empty
// memberships.
func (c *Client) Call(ctx context.Context, principalID, method, endpoint string, body []byte) (*Response, error) {
	accessToken, delegated, err := c.token(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, accessToken, delegated, method, endpoint, body)
}

// token resolves the bearer token for a call: delegated when connected,
// app-only otherwise.
func (c *Client) token(ctx context.Context, principalID string) (string, bool, error) {
	status := c.manager.Status(ctx, principalID)
	if status.State == graphauth.StateConnected {
		// Re-read the (possibly just-refreshed) record.
		record, err := c.manager.Token(ctx, principalID)
		if err == nil {
			return record.AccessToken, true, nil
		}
		c.logger.Warn("Failed to re-read token record, falling back to app-only", "error", err)
	}

	if c.appSource == nil {
		return "", false, graphauth.NewError(graphauth.KindConfigurationMissing,
			"principal is not connected and no app-only credentials are configured")
	}

	token, err := c.appSource.Token()
	if err != nil {
		return "", false, &graphauth.Error{
			Kind:        graphauth.KindNetworkError,
			Description: "failed to obtain app-only token",
			Err:         err,
		}
	}
	return token.AccessToken, false, nil
}

func (c *Client) do(ctx context.Context, accessToken string, delegated bool, method, endpoint string, body []byte) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	url := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &graphauth.Error{
			Kind:        graphauth.KindNetworkError,
			Description: "resource API call failed",
			Err:         err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	c.inst.RecordAPICall(ctx, method, resp.StatusCode, !delegated, time.Since(start))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		// The token passed the local expiry check, so this is server-side
		// revocation, not clock skew. No refresh retry; the caller should
		// force re-authorization.
		return nil, &graphauth.Error{
			Kind:        graphauth.KindTokenRejected,
			Description: "resource API rejected the token",
			StatusCode:  resp.StatusCode,
			Body:        respBody,
		}
	case http.StatusForbidden:
		return nil, &graphauth.Error{
			Kind:        graphauth.KindProviderForbidden,
			Description: "resource API denied access",
			StatusCode:  resp.StatusCode,
			Body:        respBody,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Delegated:  delegated,
	}, nil
}
