package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"akkani-backend/models/users"
)

// CredentialFields is the full set of columns an upsert writes to the
// per-user credential row.
type CredentialFields struct {
	AccessToken  string
	RefreshToken string
	TokenURI     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Expiry       time.Time
}

// TokenStore is a keyed single-record repository for Google credentials:
// one row per user, updated in place. It does not inspect token contents.
type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

// Get returns the stored credential for a user, or nil when none exists.
func (s *TokenStore) Get(userID uint) (*users.OAuthToken, error) {
	var token users.OAuthToken
	err := s.db.Where("user_id = ?", userID).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Upsert writes every supplied field to the user's credential row, creating
// it on first save. The single-row update keyed by user id makes concurrent
// refreshes resolve last-write-wins instead of interleaving partial writes.
func (s *TokenStore) Upsert(userID uint, fields CredentialFields) (*users.OAuthToken, error) {
	var token users.OAuthToken
	err := s.db.Where("user_id = ?", userID).First(&token).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	token.UserID = userID
	token.AccessToken = fields.AccessToken
	token.RefreshToken = fields.RefreshToken
	token.TokenURI = fields.TokenURI
	token.ClientID = fields.ClientID
	token.ClientSecret = fields.ClientSecret
	token.Scopes = users.EncodeScopes(fields.Scopes)
	token.Expiry = fields.Expiry.UTC()

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.Create(&token).Error; err != nil {
			return nil, err
		}
		return &token, nil
	}
	if err := s.db.Save(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// Delete removes the credential row. Used by the explicit revoke endpoint;
// tokens are never deleted automatically.
func (s *TokenStore) Delete(userID uint) error {
	return s.db.Where("user_id = ?", userID).Delete(&users.OAuthToken{}).Error
}
