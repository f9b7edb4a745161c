package config

import (
	"os"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// GoogleConfig carries the OAuth client settings for the Google Calendar
// integration. It is constructed once in main and passed to the services
// that need it instead of living as package state.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	Endpoint     oauth2.Endpoint

	// StateKey signs the state parameter round-tripped through the
	// authorization redirect.
	StateKey []byte
}

func LoadGoogleConfig() GoogleConfig {
	return GoogleConfig{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		Scopes:       []string{calendar.CalendarScope, calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
		StateKey:     []byte(os.Getenv("SESSION_SECRET")),
	}
}

// OAuth2 builds the oauth2 client configuration for a given redirect URI.
func (c GoogleConfig) OAuth2(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       c.Scopes,
		Endpoint:     c.Endpoint,
	}
}

// SMTPConfig carries the settings for outgoing invitation mail.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

func LoadSMTPConfig() SMTPConfig {
	port, err := strconv.Atoi(envOr("SMTP_PORT", "587"))
	if err != nil {
		port = 587
	}
	return SMTPConfig{
		Host:      envOr("SMTP_SERVER", "smtp.gmail.com"),
		Port:      port,
		Username:  os.Getenv("SMTP_USERNAME"),
		Password:  os.Getenv("SMTP_PASSWORD"),
		FromEmail: os.Getenv("FROM_EMAIL"),
		FromName:  envOr("FROM_NAME", "Department Services"),
	}
}
