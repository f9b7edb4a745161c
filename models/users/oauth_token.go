package users

import (
	"encoding/json"
	"time"
)

// OAuthToken is the stored Google credential for one user. The unique index
// on UserID keeps it to a single row per user; every refresh updates this
// row in place.
type OAuthToken struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User         User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AccessToken  string    `gorm:"type:text;not null" json:"-"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	TokenURI     string    `gorm:"size:500;not null" json:"-"`
	ClientID     string    `gorm:"size:500;not null" json:"-"`
	ClientSecret string    `gorm:"size:500;not null" json:"-"`
	Scopes       string    `gorm:"type:text;not null" json:"-"` // JSON array of scope strings
	Expiry       time.Time `gorm:"not null" json:"expiry"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScopeList decodes the persisted scopes column.
func (t *OAuthToken) ScopeList() []string {
	var scopes []string
	if err := json.Unmarshal([]byte(t.Scopes), &scopes); err != nil {
		return nil
	}
	return scopes
}

// EncodeScopes serializes a scope slice for the Scopes column.
func EncodeScopes(scopes []string) string {
	b, err := json.Marshal(scopes)
	if err != nil {
		return "[]"
	}
	return string(b)
}
