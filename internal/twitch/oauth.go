package twitch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	twitchoauth "golang.org/x/oauth2/twitch"
)

// Scopes requested by the authorization flow.
const (
	ScopeReadSuspiciousUsers   = "moderator:read:suspicious_users"
	ScopeManageSuspiciousUsers = "moderator:manage:suspicious_users"
)

// Access levels reported after a successful authorization.
const (
	AccessRead   = "Read"
	AccessManage = "Manage"
)

// Credentials identify the Twitch application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Endpoint overrides Twitch's OAuth endpoint when set.
	Endpoint oauth2.Endpoint
}

// Enabled reports whether the user authorization flow can run.
func (c Credentials) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

func (c Credentials) endpoint() oauth2.Endpoint {
	if c.Endpoint.TokenURL != "" {
		return c.Endpoint
	}
	return twitchoauth.Endpoint
}

// Scopes returns the scopes for a read-only or a managing authorization.
func Scopes(manage bool) []string {
	if manage {
		return []string{ScopeManageSuspiciousUsers}
	}
	return []string{ScopeReadSuspiciousUsers}
}

// OAuthConfig returns the authorization-code flow configuration.
func OAuthConfig(creds Credentials, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       scopes,
		Endpoint:     creds.endpoint(),
	}
}

// GrantedScopes returns the scopes Twitch reported for tok.
// Twitch answers with a JSON array; a space separated string is accepted too.
func GrantedScopes(tok *oauth2.Token) []string {
	if tok == nil {
		return nil
	}
	switch v := tok.Extra("scope").(type) {
	case []any:
		scopes := make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				scopes = append(scopes, str)
			}
		}
		return scopes
	case []string:
		return v
	case string:
		return strings.Fields(v)
	default:
		return nil
	}
}

// AccessLevel is Manage when tok carries the managing scope, Read otherwise.
func AccessLevel(tok *oauth2.Token) string {
	if slices.Contains(GrantedScopes(tok), ScopeManageSuspiciousUsers) {
		return AccessManage
	}
	return AccessRead
}

// AppTokens obtains app access tokens with the client credentials grant.
// Tokens are fetched on demand and not cached.
type AppTokens struct {
	cfg clientcredentials.Config
}

func NewAppTokens(creds Credentials) *AppTokens {
	return &AppTokens{
		cfg: clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.endpoint().TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
	}
}

// Token returns a fresh app access token.
func (a *AppTokens) Token(ctx context.Context) (string, error) {
	if a.cfg.ClientID == "" || a.cfg.ClientSecret == "" {
		return "", errors.New("twitch client id and secret are required")
	}
	tok, err := a.cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("requesting app access token: %w", err)
	}
	return tok.AccessToken, nil
}
