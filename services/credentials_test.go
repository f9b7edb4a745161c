package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTokenEndpoint serves the refresh grant. Each response carries a fresh
// access token; refreshToken is echoed back only when non-empty, matching
// Google's habit of omitting it on refresh.
func newTokenEndpoint(t *testing.T, calls *int32, refreshToken string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if status != http.StatusOK {
			http.Error(w, `{"error":"invalid_grant"}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body := `{"access_token":"refreshed-token","token_type":"Bearer","expires_in":3600`
		if refreshToken != "" {
			body += fmt.Sprintf(`,"refresh_token":%q`, refreshToken)
		}
		body += `}`
		fmt.Fprint(w, body)
	}))
}

func seedToken(t *testing.T, store *TokenStore, userID uint, tokenURI, refreshToken string, expiry time.Time) {
	t.Helper()
	fields := sampleFields("stored-token")
	fields.TokenURI = tokenURI
	fields.RefreshToken = refreshToken
	fields.Expiry = expiry
	if _, err := store.Upsert(userID, fields); err != nil {
		t.Fatalf("seed token: %v", err)
	}
}

func TestGetValidCredentialNoRow(t *testing.T) {
	broker := NewCredentialBroker(NewTokenStore(newTestDB(t)))

	cred, err := broker.GetValidCredential(context.Background(), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred != nil {
		t.Fatalf("expected absent credential, got %+v", cred)
	}
}

func TestGetValidCredentialFreshTokenNoRefresh(t *testing.T) {
	var calls int32
	srv := newTokenEndpoint(t, &calls, "", http.StatusOK)
	defer srv.Close()

	store := NewTokenStore(newTestDB(t))
	seedToken(t, store, 1, srv.URL, "refresh-1", time.Now().UTC().Add(time.Hour))
	broker := NewCredentialBroker(store)

	cred, err := broker.GetValidCredential(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred == nil || cred.AccessToken != "stored-token" {
		t.Fatalf("expected stored credential unchanged, got %+v", cred)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no refresh call, got %d", calls)
	}
}

func TestGetValidCredentialRefreshesExpired(t *testing.T) {
	var calls int32
	srv := newTokenEndpoint(t, &calls, "", http.StatusOK)
	defer srv.Close()

	store := NewTokenStore(newTestDB(t))
	seedToken(t, store, 1, srv.URL, "refresh-1", time.Now().UTC().Add(-time.Hour))
	broker := NewCredentialBroker(store)

	cred, err := broker.GetValidCredential(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred == nil {
		t.Fatal("expected refreshed credential, got absent")
	}
	if cred.AccessToken != "refreshed-token" {
		t.Errorf("expected refreshed access token, got %q", cred.AccessToken)
	}
	if !cred.Expiry.After(time.Now().UTC()) {
		t.Errorf("expected future expiry, got %v", cred.Expiry)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected exactly one refresh call, got %d", calls)
	}

	// Provider omitted the refresh token, so the old one is retained.
	if cred.RefreshToken != "refresh-1" {
		t.Errorf("expected old refresh token retained, got %q", cred.RefreshToken)
	}

	// The refresh must be persisted, not just returned.
	stored, err := store.Get(1)
	if err != nil || stored == nil {
		t.Fatalf("get after refresh: token=%v err=%v", stored, err)
	}
	if stored.AccessToken != "refreshed-token" {
		t.Errorf("refresh was not persisted, stored token is %q", stored.AccessToken)
	}
}

func TestGetValidCredentialAdoptsNewRefreshToken(t *testing.T) {
	var calls int32
	srv := newTokenEndpoint(t, &calls, "rotated-refresh", http.StatusOK)
	defer srv.Close()

	store := NewTokenStore(newTestDB(t))
	seedToken(t, store, 1, srv.URL, "refresh-1", time.Now().UTC().Add(-time.Minute))
	broker := NewCredentialBroker(store)

	cred, err := broker.GetValidCredential(context.Background(), 1)
	if err != nil || cred == nil {
		t.Fatalf("expected refreshed credential: token=%v err=%v", cred, err)
	}
	if cred.RefreshToken != "rotated-refresh" {
		t.Errorf("expected rotated refresh token, got %q", cred.RefreshToken)
	}
}

func TestGetValidCredentialExpiredWithoutRefreshToken(t *testing.T) {
	var calls int32
	srv := newTokenEndpoint(t, &calls, "", http.StatusOK)
	defer srv.Close()

	store := NewTokenStore(newTestDB(t))
	seedToken(t, store, 1, srv.URL, "", time.Now().UTC().Add(-time.Hour))
	broker := NewCredentialBroker(store)

	cred, err := broker.GetValidCredential(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred != nil {
		t.Fatalf("expected absent credential, got %+v", cred)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no refresh call, got %d", calls)
	}
}

func TestGetValidCredentialRefreshFailureIsAbsent(t *testing.T) {
	var calls int32
	srv := newTokenEndpoint(t, &calls, "", http.StatusBadRequest)
	defer srv.Close()

	store := NewTokenStore(newTestDB(t))
	seedToken(t, store, 1, srv.URL, "refresh-1", time.Now().UTC().Add(-time.Hour))
	broker := NewCredentialBroker(store)

	cred, err := broker.GetValidCredential(context.Background(), 1)
	if err != nil {
		t.Fatalf("refresh failure should not surface as an error, got %v", err)
	}
	if cred != nil {
		t.Fatalf("expected absent credential after failed refresh, got %+v", cred)
	}

	// The stale row must be left as it was.
	stored, err := store.Get(1)
	if err != nil || stored == nil {
		t.Fatalf("get after failed refresh: token=%v err=%v", stored, err)
	}
	if stored.AccessToken != "stored-token" {
		t.Errorf("failed refresh must not overwrite the row, got %q", stored.AccessToken)
	}
}

func TestGetValidCredentialRefreshesInsideSkewWindow(t *testing.T) {
	var calls int32
	srv := newTokenEndpoint(t, &calls, "", http.StatusOK)
	defer srv.Close()

	store := NewTokenStore(newTestDB(t))
	// Expires in two minutes, inside the 5 minute lookahead.
	seedToken(t, store, 1, srv.URL, "refresh-1", time.Now().UTC().Add(2*time.Minute))
	broker := NewCredentialBroker(store)

	cred, err := broker.GetValidCredential(context.Background(), 1)
	if err != nil || cred == nil {
		t.Fatalf("expected refreshed credential: token=%v err=%v", cred, err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected an early refresh inside the skew window, got %d calls", calls)
	}
}
