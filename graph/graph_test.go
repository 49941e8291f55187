package graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	graphauth "github.com/pilr/team-summary-sub000"
	"github.com/pilr/team-summary-sub000/provider"
	providermock "github.com/pilr/team-summary-sub000/provider/mock"
	"github.com/pilr/team-summary-sub000/storage"
	"github.com/pilr/team-summary-sub000/storage/memory"
)

var testAppCreds = provider.Credentials{
	ClientID:     "app-client",
	ClientSecret: "app-secret",
	Tenant:       "contoso.onmicrosoft.com",
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) (*graphauth.Manager, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	m, err := graphauth.NewManager(providermock.NewProvider(), store, store, &graphauth.Config{
		DefaultCredentials: provider.Credentials{
			ClientID:     "default-client",
			ClientSecret: "default-secret",
			Tenant:       "default-tenant",
		},
		Logger: discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, store
}

func connectPrincipal(t *testing.T, store *memory.Store, principalID, accessToken string) {
	t.Helper()

	err := store.UpsertToken(context.Background(), &storage.Record{
		PrincipalID:  principalID,
		Provider:     "mock",
		AccessToken:  accessToken,
		RefreshToken: "rt",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("seeding record: %v", err)
	}
}

func newTestClient(t *testing.T, manager *graphauth.Manager, api *httptest.Server, cfg *Config) *Client {
	t.Helper()

	if cfg == nil {
		cfg = &Config{}
	}
	cfg.BaseURL = api.URL
	cfg.Logger = discardLogger()

	client, err := NewClient(manager, cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestCall_DelegatedToken(t *testing.T) {
	m, store := newTestManager(t)
	connectPrincipal(t, store, "user-1", "delegated-at")

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer delegated-at" {
			t.Errorf("Authorization = %q, want the delegated token", got)
		}
		w.Write([]byte(`{"value":[]}`))
	}))
	t.Cleanup(api.Close)

	client := newTestClient(t, m, api, nil)
	resp, err := client.Call(context.Background(), "user-1", http.MethodGet, "/me/joinedTeams", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !resp.Delegated {
		t.Error("Delegated should be true for a connected principal")
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
}

func TestCall_AppOnlyFallback(t *testing.T) {
	m, _ := newTestManager(t)

	tokenEndpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"app-only-at","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokenEndpoint.Close)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer app-only-at" {
			t.Errorf("Authorization = %q, want the app-only token", got)
		}
		w.Write([]byte(`{"value":[]}`))
	}))
	t.Cleanup(api.Close)

	client := newTestClient(t, m, api, &Config{
		AppCredentials: testAppCreds,
		TokenURL:       tokenEndpoint.URL + "/token",
	})

	// "user-1" never connected; the call is served app-only.
	resp, err := client.Call(context.Background(), "user-1", http.MethodGet, "/teams/abc/channels", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Delegated {
		t.Error("Delegated should be false for the app-only fallback")
	}
}

func TestCall_NoTokenAndNoFallback(t *testing.T) {
	m, _ := newTestManager(t)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should reach the API")
	}))
	t.Cleanup(api.Close)

	client := newTestClient(t, m, api, nil)
	_, err := client.Call(context.Background(), "user-1", http.MethodGet, "/me", nil)
	if !graphauth.IsKind(err, graphauth.KindConfigurationMissing) {
		t.Errorf("kind = %q, want %q", graphauth.KindOf(err), graphauth.KindConfigurationMissing)
	}
}

func TestCall_UnauthorizedMapsToTokenRejected(t *testing.T) {
	m, store := newTestManager(t)
	connectPrincipal(t, store, "user-1", "revoked-at")

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"InvalidAuthenticationToken"}}`))
	}))
	t.Cleanup(api.Close)

	client := newTestClient(t, m, api, nil)
	_, err := client.Call(context.Background(), "user-1", http.MethodGet, "/me", nil)
	if !graphauth.IsKind(err, graphauth.KindTokenRejected) {
		t.Errorf("kind = %q, want %q", graphauth.KindOf(err), graphauth.KindTokenRejected)
	}
}

func TestCall_ForbiddenPreservesBody(t *testing.T) {
	m, store := newTestManager(t)
	connectPrincipal(t, store, "user-1", "at")

	body := `{"error":{"code":"Authorization_RequestDenied","message":"Insufficient privileges to complete the operation."}}`
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(body))
	}))
	t.Cleanup(api.Close)

	client := newTestClient(t, m, api, nil)
	_, err := client.Call(context.Background(), "user-1", http.MethodGet, "/teams/abc/members", nil)
	if !graphauth.IsKind(err, graphauth.KindProviderForbidden) {
		t.Fatalf("kind = %q, want %q", graphauth.KindOf(err), graphauth.KindProviderForbidden)
	}

	var coreErr *graphauth.Error
	if !errors.As(err, &coreErr) {
		t.Fatal("expected *graphauth.Error")
	}
	if string(coreErr.Body) != body {
		t.Errorf("Body = %q, API body must be preserved verbatim", coreErr.Body)
	}
}

func TestMe(t *testing.T) {
	m, _ := newTestManager(t)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("path = %q, want /me", r.URL.Path)
		}
		if got := r.URL.Query().Get("$select"); got != "id,displayName,mail,userPrincipalName" {
			t.Errorf("$select = %q", got)
		}
		json.NewEncoder(w).Encode(Profile{
			ID:                "user-guid",
			DisplayName:       "Ada Lovelace",
			UserPrincipalName: "ada@contoso.com",
		})
	}))
	t.Cleanup(api.Close)

	client := newTestClient(t, m, api, nil)
	profile, err := client.Me(context.Background(), "at")
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if profile.DisplayName != "Ada Lovelace" {
		t.Errorf("DisplayName = %q", profile.DisplayName)
	}
	if profile.Email() != "ada@contoso.com" {
		t.Errorf("Email() = %q, want the principal-name fallback", profile.Email())
	}
}

func TestProfile_Email(t *testing.T) {
	withMail := &Profile{Mail: "ada@contoso.com", UserPrincipalName: "ada_upn@contoso.com"}
	if withMail.Email() != "ada@contoso.com" {
		t.Errorf("Email() = %q, want mail to win", withMail.Email())
	}

	withoutMail := &Profile{UserPrincipalName: "ada_upn@contoso.com"}
	if withoutMail.Email() != "ada_upn@contoso.com" {
		t.Errorf("Email() = %q", withoutMail.Email())
	}
}

func TestValidateToken(t *testing.T) {
	m, _ := newTestManager(t)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(api.Close)

	client := newTestClient(t, m, api, nil)
	if err := client.ValidateToken(context.Background(), "bad-at"); err == nil {
		t.Error("expected validation failure on 401")
	}
}
