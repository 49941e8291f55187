package graphauth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pilr/team-summary-sub000/provider"
	"github.com/pilr/team-summary-sub000/storage"
	storagemock "github.com/pilr/team-summary-sub000/storage/mock"
)

func TestSweep_RefreshesExpiringTokens(t *testing.T) {
	m, p, store := newTestManager(t)
	ctx := context.Background()

	// Three expiring within the window, one comfortably outside it, one
	// expiring but without a refresh token.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedRecord(t, m, fmt.Sprintf("expiring-%d", i), &storage.Record{
			AccessToken:  "at",
			RefreshToken: fmt.Sprintf("rt-%d", i),
			ExpiresAt:    base.Add(5 * time.Minute),
		})
	}
	seedRecord(t, m, "healthy", &storage.Record{
		AccessToken:  "at",
		RefreshToken: "rt-healthy",
		ExpiresAt:    base.Add(6 * time.Hour),
	})
	seedRecord(t, m, "orphan", &storage.Record{
		AccessToken: "at",
		ExpiresAt:   base.Add(5 * time.Minute),
	})
	// A zero expiry means no expiration; nothing to refresh ahead of.
	seedRecord(t, m, "no-expiry", &storage.Record{
		AccessToken:  "at",
		RefreshToken: "rt-no-expiry",
	})

	p.RefreshFunc = func(ctx context.Context, creds provider.Credentials, refreshToken string) (*provider.TokenResponse, error) {
		return &provider.TokenResponse{
			AccessToken: "refreshed",
			ExpiresAt:   base.Add(2 * time.Hour),
		}, nil
	}

	result, err := m.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.Candidates != 5 {
		t.Errorf("Candidates = %d, want 5", result.Candidates)
	}
	if result.Refreshed != 3 {
		t.Errorf("Refreshed = %d, want 3", result.Refreshed)
	}
	if result.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", result.Skipped)
	}
	if result.Failed != 0 {
		t.Errorf("Failed = %d, want 0", result.Failed)
	}

	for i := 0; i < 3; i++ {
		stored, err := store.GetToken(ctx, fmt.Sprintf("expiring-%d", i), "mock")
		if err != nil {
			t.Fatalf("GetToken: %v", err)
		}
		if stored.AccessToken != "refreshed" {
			t.Errorf("expiring-%d not refreshed", i)
		}
	}

	healthy, _ := store.GetToken(ctx, "healthy", "mock")
	if healthy.AccessToken != "at" {
		t.Error("record outside the window must not be touched")
	}
}

func TestSweep_FailuresDoNotAbort(t *testing.T) {
	m, p, store := newTestManager(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedRecord(t, m, "good", &storage.Record{
		AccessToken:  "at",
		RefreshToken: "rt-good",
		ExpiresAt:    base.Add(time.Minute),
	})
	seedRecord(t, m, "bad", &storage.Record{
		AccessToken:  "at",
		RefreshToken: "rt-bad",
		ExpiresAt:    base.Add(time.Minute),
	})

	p.RefreshFunc = func(ctx context.Context, creds provider.Credentials, refreshToken string) (*provider.TokenResponse, error) {
		if refreshToken == "rt-bad" {
			return nil, &provider.EndpointError{StatusCode: 400, Code: "invalid_grant"}
		}
		return &provider.TokenResponse{
			AccessToken: "refreshed",
			ExpiresAt:   base.Add(2 * time.Hour),
		}, nil
	}

	result, err := m.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.Refreshed != 1 {
		t.Errorf("Refreshed = %d, want 1", result.Refreshed)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}

	// The failed record keeps its last-known state.
	bad, err := store.GetToken(ctx, "bad", "mock")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if bad.RefreshToken != "rt-bad" {
		t.Errorf("failed record mutated: %+v", bad)
	}
}

func TestSweep_ListFailure(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.tokens = &storagemock.TokenStore{
		ListExpiringFunc: func(ctx context.Context, before time.Time) ([]*storage.Record, error) {
			return nil, errors.New("database is locked")
		},
	}

	_, err := m.Sweep(context.Background())
	if !IsKind(err, KindPersistenceFailed) {
		t.Errorf("kind = %q, want %q", KindOf(err), KindPersistenceFailed)
	}
}

func TestSweep_EmptyStore(t *testing.T) {
	m, p, _ := newTestManager(t)

	result, err := m.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result != (SweepResult{}) {
		t.Errorf("result = %+v, want zero", result)
	}
	if p.Calls("Refresh") != 0 {
		t.Error("no refreshes expected on an empty store")
	}
}
