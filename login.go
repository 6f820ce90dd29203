package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/chunkupload/internal/config"
	"github.com/tonimelisma/chunkupload/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the upload server via the device code flow",
		Long: `Authenticate using OAuth2's device authorization grant (RFC 8628):
prints a verification URL and user code, then polls until the user
authorizes the request in a browser. The resulting token is saved to
disk and refreshed automatically on later runs.

Only meaningful when the target's [oauth] section is configured; with
no OAuth section, "upload" and "watch" send unauthenticated requests.`,
		RunE: runLogin,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	oc := cc.Cfg.Target.OAuth
	if !oc.Enabled() {
		return fmt.Errorf("no [oauth] section in config — nothing to authenticate against")
	}

	tok, err := deviceLogin(ctx, oc, cc.Logger)
	if err != nil {
		return err
	}

	if err := tokenfile.Save(config.TokenFilePath(), tok, nil); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	cc.Statusf("Login successful, token saved to %s\n", config.TokenFilePath())

	return nil
}

// deviceLogin runs the device-code OAuth2 flow and returns the resulting
// token. Mirrors the teacher's graph.Login, generalized from a
// Microsoft-specific endpoint to whatever device_auth_url/token_url the
// target config names.
func deviceLogin(ctx context.Context, oc config.OAuthConfig, logger *slog.Logger) (*oauth2.Token, error) {
	oauthCfg := &oauth2.Config{
		ClientID: oc.ClientID,
		Scopes:   oc.Scopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: oc.DeviceAuthURL,
			TokenURL:      oc.TokenURL,
		},
	}

	logger.Info("starting device code auth flow", slog.String("device_auth_url", oc.DeviceAuthURL))

	da, err := oauthCfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting device code: %w", err)
	}

	// Device code prompts must always be visible, even under --quiet.
	fmt.Fprintf(os.Stderr, "To sign in, visit: %s\n", da.VerificationURI)
	fmt.Fprintf(os.Stderr, "Enter code: %s\n", da.UserCode)

	logger.Info("device code issued, waiting for user authorization")

	tok, err := oauthCfg.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("waiting for authorization: %w", err)
	}

	logger.Info("authorization complete", slog.Time("expiry", tok.Expiry))

	return tok, nil
}
