package authentication

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"akkani-backend/config"
	"akkani-backend/services"
)

// GoogleAuthController wires the Google authorization flow to HTTP. The
// connect endpoint is called by an authenticated user; the callback arrives
// from Google's redirect, so identity there comes from the signed state
// parameter instead of the bearer token.
type GoogleAuthController struct {
	Flow  *services.AuthorizationFlow
	Store *services.TokenStore
}

// Connect returns the consent URL for the authenticated user. An optional
// return_to query parameter is remembered in the session and used as the
// post-callback redirect target.
func (c *GoogleAuthController) Connect(w http.ResponseWriter, r *http.Request) {
	claims, err := ValidateToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if returnTo := r.URL.Query().Get("return_to"); returnTo != "" {
		session, _ := config.Store.Get(r, "oauth-session")
		session.Values["return_to"] = returnTo
		if err := session.Save(r, w); err != nil {
			log.Printf("failed to save oauth session: %v", err)
		}
	}

	authURL, err := c.Flow.BuildAuthorizationURL(callbackURI(r), claims.UserID)
	if err != nil {
		http.Error(w, "Error initiating OAuth flow", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"authorization_url": authURL})
}

// Callback verifies the state, exchanges the code and redirects the browser
// to the success or error page.
func (c *GoogleAuthController) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		http.Redirect(w, r, "/calendar/error?message=missing_state_or_code", http.StatusTemporaryRedirect)
		return
	}

	userID, err := c.Flow.VerifyState(state)
	if err != nil {
		log.Printf("oauth callback state rejected: %v", err)
		http.Redirect(w, r, "/calendar/error?message=invalid_state", http.StatusTemporaryRedirect)
		return
	}

	if _, err := c.Flow.ExchangeCode(r.Context(), userID, code, callbackURI(r)); err != nil {
		log.Printf("oauth code exchange failed for user %d: %v", userID, err)
		http.Redirect(w, r, "/calendar/error?message=auth_failed", http.StatusTemporaryRedirect)
		return
	}

	target := "/calendar/success"
	session, _ := config.Store.Get(r, "oauth-session")
	if returnTo, ok := session.Values["return_to"].(string); ok && returnTo != "" {
		target = returnTo
		delete(session.Values, "return_to")
		session.Save(r, w)
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// Status reports whether the authenticated user has a connected, unexpired
// Google credential.
func (c *GoogleAuthController) Status(w http.ResponseWriter, r *http.Request) {
	claims, err := ValidateToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	token, err := c.Store.Get(claims.UserID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{"connected": token != nil}
	if token != nil {
		resp["expired"] = !time.Now().UTC().Before(token.Expiry)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Revoke removes the stored credential row for the authenticated user.
func (c *GoogleAuthController) Revoke(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := ValidateToken(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if err := c.Store.Delete(claims.UserID); err != nil {
		http.Error(w, "Failed to revoke token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "success",
		"message": "Disconnected from Google Calendar",
	})
}

// callbackURI rebuilds the absolute callback URL Google must redirect to; it
// has to match between the consent URL and the code exchange.
func callbackURI(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/auth/google/callback"
}
