package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/chunkupload/internal/config"
	"github.com/tonimelisma/chunkupload/internal/tokenfile"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved authentication token",
		Long: `Removes the token file written by "login". Idempotent: running
logout when already logged out is not an error.`,
		RunE: runLogout,
	}
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	err := tokenfile.Remove(config.TokenFilePath())
	if errors.Is(err, tokenfile.ErrNotLoggedIn) {
		cc.Statusf("Already logged out\n")

		return nil
	}

	if err != nil {
		return fmt.Errorf("removing token: %w", err)
	}

	cc.Statusf("Logged out\n")

	return nil
}
