package services

import (
	"context"
	"log"
	"time"

	"golang.org/x/oauth2"

	"akkani-backend/models/users"
)

// refreshSkew refreshes tokens slightly before their stored expiry so an
// in-flight calendar call does not race the cutoff.
const refreshSkew = 5 * time.Minute

// CredentialBroker hands out currently-valid credentials, refreshing and
// re-persisting expired ones on demand. The refresh runs synchronously
// inside the request that discovered the expiry; there is no background
// refresh task.
type CredentialBroker struct {
	store *TokenStore
	now   func() time.Time
}

func NewCredentialBroker(store *TokenStore) *CredentialBroker {
	return &CredentialBroker{store: store, now: time.Now}
}

// GetValidCredential returns a usable credential for the user, or nil when
// the user has none and must go through the authorization flow: no stored
// row, an expired token without a refresh token, or a failed refresh. A
// refresh failure is recoverable by the user, so it is not surfaced as an
// error.
func (b *CredentialBroker) GetValidCredential(ctx context.Context, userID uint) (*users.OAuthToken, error) {
	token, err := b.store.Get(userID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, nil
	}

	now := b.now().UTC()
	if token.RefreshToken == "" {
		if now.Before(token.Expiry) {
			return token, nil
		}
		return nil, nil
	}

	if now.Before(token.Expiry.Add(-refreshSkew)) {
		return token, nil
	}

	refreshed, err := b.refresh(ctx, token)
	if err != nil {
		log.Printf("token refresh failed for user %d: %v", userID, err)
		return nil, nil
	}
	return refreshed, nil
}

// refresh performs one refresh grant against the stored token endpoint and
// persists the result. Google omits the refresh token from refresh
// responses, so the previous one is carried forward unless a new one was
// issued.
func (b *CredentialBroker) refresh(ctx context.Context, token *users.OAuthToken) (*users.OAuthToken, error) {
	conf := &oauth2.Config{
		ClientID:     token.ClientID,
		ClientSecret: token.ClientSecret,
		Scopes:       token.ScopeList(),
		Endpoint:     oauth2.Endpoint{TokenURL: token.TokenURI},
	}
	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken})
	fresh, err := src.Token()
	if err != nil {
		return nil, err
	}

	refreshToken := fresh.RefreshToken
	if refreshToken == "" {
		refreshToken = token.RefreshToken
	}

	return b.store.Upsert(token.UserID, CredentialFields{
		AccessToken:  fresh.AccessToken,
		RefreshToken: refreshToken,
		TokenURI:     token.TokenURI,
		ClientID:     token.ClientID,
		ClientSecret: token.ClientSecret,
		Scopes:       token.ScopeList(),
		Expiry:       fresh.Expiry.UTC(),
	})
}
