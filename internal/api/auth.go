package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Wissididom/twitch-sus-user-logger/internal/twitch"
)

const (
	stateCookie    = "eventsub_oauth_state"
	stateCookieTTL = 10 * time.Minute
)

// UserLookup resolves Twitch users with a user access token.
type UserLookup interface {
	GetUser(ctx context.Context, accessToken, login string) (*twitch.User, error)
}

// AuthHandler walks a moderator through Twitch's authorization code flow so
// the application is granted the scopes its EventSub subscription needs.
// Tokens are shown to nobody and kept nowhere.
type AuthHandler struct {
	creds  twitch.Credentials
	users  UserLookup
	logger *slog.Logger
}

func NewAuthHandler(creds twitch.Credentials, users UserLookup, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{creds: creds, users: users, logger: logger}
}

// Login redirects to Twitch. ?manage=true asks for the managing scope.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	manage := strings.EqualFold(r.URL.Query().Get("manage"), "true")
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	cfg := twitch.OAuthConfig(h.creds, twitch.Scopes(manage))
	http.Redirect(w, r, cfg.AuthCodeURL(state), http.StatusFound)
}

// Callback completes the flow and names the authorized user.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Get("code") != "":
		h.exchange(w, r, q.Get("code"), q.Get("state"))

	case q.Get("error") != "":
		msg := "The following error occurred:\n" + q.Get("error")
		if desc := q.Get("error_description"); desc != "" {
			msg += "\n" + desc
		}
		respondText(w, http.StatusBadRequest, msg)

	default:
		respondText(w, http.StatusOK, "This endpoint is intended to be redirected from Twitch's auth flow. It is not meant to be called directly")
	}
}

func (h *AuthHandler) exchange(w http.ResponseWriter, r *http.Request, code, state string) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || cookie.Value != state {
		respondText(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	cfg := twitch.OAuthConfig(h.creds, nil)
	tok, err := cfg.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth code exchange failed", "error", err)
		respondText(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	user, err := h.users.GetUser(r.Context(), tok.AccessToken, "")
	if err != nil {
		h.logger.Error("resolving authorized user failed", "error", err)
		respondText(w, http.StatusBadGateway, "user lookup failed")
		return
	}

	level := twitch.AccessLevel(tok)
	h.logger.Info("twitch authorization granted",
		"user_id", user.ID,
		"user_login", user.Login,
		"access", level,
	)
	respondText(w, http.StatusOK, grantedMessage(level, user))
}

func grantedMessage(level string, user *twitch.User) string {
	if strings.ToLower(user.DisplayName) == user.Login {
		return fmt.Sprintf("Got %s Tokens for %s", level, user.DisplayName)
	}
	return fmt.Sprintf("Got %s Tokens for %s (%s)", level, user.DisplayName, user.Login)
}
