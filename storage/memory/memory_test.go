package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pilr/team-summary-sub000/storage"
)

func testRecord(principalID string) *storage.Record {
	return &storage.Record{
		PrincipalID:  principalID,
		Provider:     "microsoft",
		AccessToken:  "at-" + principalID,
		RefreshToken: "rt-" + principalID,
		TokenType:    "Bearer",
		ExpiresAt:    time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
	}
}

func TestStore_UpsertAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	record := testRecord("user-1")
	if err := store.UpsertToken(ctx, record); err != nil {
		t.Fatalf("UpsertToken: %v", err)
	}
	if record.ID == "" {
		t.Error("an ID should be assigned on insert")
	}

	got, err := store.GetToken(ctx, "user-1", "microsoft")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got.AccessToken != "at-user-1" {
		t.Errorf("AccessToken = %q", got.AccessToken)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	store := NewStore()

	_, err := store.GetToken(context.Background(), "nobody", "microsoft")
	if !errors.Is(err, storage.ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestStore_UpsertPreservesIdentity(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	first := testRecord("user-1")
	if err := store.UpsertToken(ctx, first); err != nil {
		t.Fatalf("UpsertToken: %v", err)
	}

	second := testRecord("user-1")
	second.AccessToken = "at-rotated"
	if err := store.UpsertToken(ctx, second); err != nil {
		t.Fatalf("UpsertToken: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("update assigned new ID %q, want %q", second.ID, first.ID)
	}

	got, _ := store.GetToken(ctx, "user-1", "microsoft")
	if got.AccessToken != "at-rotated" {
		t.Errorf("AccessToken = %q, want at-rotated", got.AccessToken)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be preserved across updates")
	}
}

func TestStore_ReadsReturnClones(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.UpsertToken(ctx, testRecord("user-1")); err != nil {
		t.Fatalf("UpsertToken: %v", err)
	}

	got, _ := store.GetToken(ctx, "user-1", "microsoft")
	got.AccessToken = "mutated"

	again, _ := store.GetToken(ctx, "user-1", "microsoft")
	if again.AccessToken == "mutated" {
		t.Error("mutating a returned record must not affect the store")
	}
}

func TestStore_DeleteToken(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.UpsertToken(ctx, testRecord("user-1")); err != nil {
		t.Fatalf("UpsertToken: %v", err)
	}
	if err := store.DeleteToken(ctx, "user-1", "microsoft"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if _, err := store.GetToken(ctx, "user-1", "microsoft"); !errors.Is(err, storage.ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
	if err := store.DeleteToken(ctx, "user-1", "microsoft"); err != nil {
		t.Errorf("deleting a missing record: %v", err)
	}
}

func TestStore_ListExpiring(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	soon := testRecord("soon")
	soon.ExpiresAt = base.Add(5 * time.Minute)
	healthy := testRecord("healthy")
	healthy.ExpiresAt = base.Add(6 * time.Hour)
	for _, r := range []*storage.Record{soon, healthy} {
		if err := store.UpsertToken(ctx, r); err != nil {
			t.Fatalf("UpsertToken: %v", err)
		}
	}

	records, err := store.ListExpiring(ctx, base.Add(15*time.Minute))
	if err != nil {
		t.Fatalf("ListExpiring: %v", err)
	}
	if len(records) != 1 || records[0].PrincipalID != "soon" {
		t.Errorf("records = %+v, want just the expiring one", records)
	}
}

func TestStore_ConcurrentUpserts(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			record := testRecord("user-1")
			record.AccessToken = fmt.Sprintf("at-%d", i)
			if err := store.UpsertToken(ctx, record); err != nil {
				t.Errorf("UpsertToken: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if got := store.TokenCount(); got != 1 {
		t.Errorf("TokenCount = %d, want 1", got)
	}
}

func TestStore_Credentials(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if _, err := store.GetCredentials(ctx, "user-1"); !errors.Is(err, storage.ErrCredentialsNotFound) {
		t.Errorf("err = %v, want ErrCredentialsNotFound", err)
	}

	if err := store.SaveCredentials(ctx, &storage.CredentialRecord{
		PrincipalID:  "user-1",
		ClientID:     "client-a",
		ClientSecret: "secret-a",
		Tenant:       "tenant-a",
	}); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}

	got, err := store.GetCredentials(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetCredentials: %v", err)
	}
	if got.ClientID != "client-a" {
		t.Errorf("ClientID = %q", got.ClientID)
	}

	if err := store.DeleteCredentials(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteCredentials: %v", err)
	}
	if _, err := store.GetCredentials(ctx, "user-1"); !errors.Is(err, storage.ErrCredentialsNotFound) {
		t.Errorf("err = %v, want ErrCredentialsNotFound", err)
	}
}
