package main

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/chunkupload/internal/config"
	"github.com/tonimelisma/chunkupload/internal/tokenfile"
)

// bearerSource produces a fresh Authorization header value on every call,
// refreshing and re-persisting the underlying OAuth2 token as needed so a
// long-running upload never outlives its bearer token. Mirrors the
// teacher's graph.TokenSource, generalized from "Graph API bearer token" to
// "whatever header a configured target's [oauth] section wants."
type bearerSource struct {
	src    oauth2.TokenSource
	logger *slog.Logger
}

// bearerSourceFromPath loads a saved token from tokenPath and returns a
// bearerSource with auto-refresh and auto-persistence via OnTokenChange.
// Returns (nil, nil) if no token file exists or OAuth isn't configured for
// this target — the caller then issues unauthenticated requests, same as
// before this was wired up.
//
// ctx must outlive the returned bearerSource; if ctx is cancelled, silent
// refresh attempts fail. Callers should pass a long-lived context such as
// the one the engine itself runs under.
func bearerSourceFromPath(ctx context.Context, tokenPath string, oc config.OAuthConfig, logger *slog.Logger) (*bearerSource, error) {
	if !oc.Enabled() {
		return nil, nil //nolint:nilnil // sentinel for "no oauth configured"
	}

	tok, meta, err := tokenfile.Load(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("loading saved token: %w", err)
	}

	if tok == nil {
		return nil, nil //nolint:nilnil // sentinel for "not logged in"
	}

	cfg := deviceOAuthConfig(tokenPath, oc, meta, logger)
	src := cfg.TokenSource(ctx, tok)

	return &bearerSource{src: src, logger: logger}, nil
}

// deviceOAuthConfig builds an oauth2.Config with OnTokenChange wired to
// persist refreshed tokens back to tokenPath. meta is captured by the
// closure so cached metadata (org name, display name, ...) survives a
// silent refresh.
func deviceOAuthConfig(tokenPath string, oc config.OAuthConfig, meta map[string]string, logger *slog.Logger) *oauth2.Config {
	return &oauth2.Config{
		ClientID: oc.ClientID,
		Scopes:   oc.Scopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: oc.DeviceAuthURL,
			TokenURL:      oc.TokenURL,
		},
		// Called by ReuseTokenSource after each silent refresh, outside its mutex.
		OnTokenChange: func(tok *oauth2.Token) {
			logger.Info("token refreshed by oauth2 library",
				slog.String("path", tokenPath),
				slog.Time("new_expiry", tok.Expiry),
			)

			if err := tokenfile.Save(tokenPath, tok, meta); err != nil {
				logger.Warn("failed to persist refreshed token",
					slog.String("path", tokenPath),
					slog.String("error", err.Error()),
				)
			}
		},
	}
}

// Header returns the current "Authorization: Bearer ..." value, refreshing
// the underlying token first if it is expired.
func (b *bearerSource) Header() (string, error) {
	tok, err := b.src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))

		return "", fmt.Errorf("obtaining bearer token: %w", err)
	}

	b.logger.Debug("token acquired", slog.Time("expiry", tok.Expiry), slog.Bool("valid", tok.Valid()))

	return "Bearer " + tok.AccessToken, nil
}
