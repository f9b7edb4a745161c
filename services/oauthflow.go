package services

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"akkani-backend/config"
	"akkani-backend/models/users"
)

// stateTTL bounds how long an authorization redirect may stay in flight.
const stateTTL = 10 * time.Minute

// AuthorizationFlow builds the Google consent URL and exchanges the
// authorization code from the callback for a persisted credential.
type AuthorizationFlow struct {
	cfg   config.GoogleConfig
	store *TokenStore
}

func NewAuthorizationFlow(cfg config.GoogleConfig, store *TokenStore) *AuthorizationFlow {
	return &AuthorizationFlow{cfg: cfg, store: store}
}

// BuildAuthorizationURL returns the consent URL for a user. Offline access
// plus a forced consent prompt make Google issue a refresh token on every
// grant. The user identity rides in a signed state parameter so the
// callback can recover it without a server-side session.
func (f *AuthorizationFlow) BuildAuthorizationURL(redirectURI string, userID uint) (string, error) {
	state, err := signState(f.cfg.StateKey, userID, time.Now().UTC().Add(stateTTL))
	if err != nil {
		return "", err
	}
	conf := f.cfg.OAuth2(redirectURI)
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// VerifyState checks the signature and expiry of a callback state parameter
// and returns the user it was issued for.
func (f *AuthorizationFlow) VerifyState(state string) (uint, error) {
	userID, expiry, err := parseState(f.cfg.StateKey, state)
	if err != nil {
		return 0, &AuthorizationError{Reason: "invalid state parameter", Err: err}
	}
	if time.Now().UTC().After(expiry) {
		return 0, &AuthorizationError{Reason: "state parameter expired"}
	}
	return userID, nil
}

// ExchangeCode trades the one-time authorization code for a token pair and
// persists it. The redirect URI must match the one the consent URL was
// built with or Google rejects the exchange.
func (f *AuthorizationFlow) ExchangeCode(ctx context.Context, userID uint, code, redirectURI string) (*users.OAuthToken, error) {
	conf := f.cfg.OAuth2(redirectURI)
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthorizationError{Reason: "code exchange rejected", Err: err}
	}
	if tok.AccessToken == "" {
		return nil, &AuthorizationError{Reason: "provider returned no access token"}
	}

	return f.store.Upsert(userID, CredentialFields{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     conf.Endpoint.TokenURL,
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		Scopes:       f.cfg.Scopes,
		Expiry:       tok.Expiry.UTC(),
	})
}

// signState encodes {userID, nonce, expiry} and an HMAC-SHA256 signature
// into an opaque URL-safe string.
func signState(key []byte, userID uint, expiry time.Time) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	payload := fmt.Sprintf("%d.%d.%s", userID, expiry.Unix(), hex.EncodeToString(nonce))
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	sig := mac.Sum(nil)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

func parseState(key []byte, state string) (uint, time.Time, error) {
	dot := strings.LastIndex(state, ".")
	if dot < 0 {
		return 0, time.Time{}, fmt.Errorf("malformed state")
	}
	payload, err := base64.RawURLEncoding.DecodeString(state[:dot])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed state payload")
	}
	sig, err := base64.RawURLEncoding.DecodeString(state[dot+1:])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed state signature")
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return 0, time.Time{}, fmt.Errorf("state signature mismatch")
	}

	parts := strings.SplitN(string(payload), ".", 3)
	if len(parts) != 3 {
		return 0, time.Time{}, fmt.Errorf("malformed state payload")
	}
	userID, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed user id in state")
	}
	expiryUnix, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed expiry in state")
	}
	return uint(userID), time.Unix(expiryUnix, 0).UTC(), nil
}
