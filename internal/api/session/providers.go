package session

import (
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"

	"github.com/adminkit/adminkit/config"
)

// RegisterProviders wires the configured OAuth providers into goth and
// installs the cookie store gothic uses for the handshake state.
func RegisterProviders(cfg config.Config) {
	store := sessions.NewCookieStore([]byte(cfg.Auth.SessionSecret))
	store.Options.HttpOnly = true
	store.MaxAge(3600)
	gothic.Store = store

	var providers []goth.Provider
	if gh := cfg.OAuth.GitHub; gh.ClientID != "" {
		providers = append(providers, github.New(gh.ClientID, gh.ClientSecret, gh.CallbackURL))
	}
	if g := cfg.OAuth.Google; g.ClientID != "" {
		providers = append(providers, google.New(g.ClientID, g.ClientSecret, g.CallbackURL))
	}
	goth.UseProviders(providers...)
}
