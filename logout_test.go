package main

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/chunkupload/internal/config"
	"github.com/tonimelisma/chunkupload/internal/tokenfile"
)

func logoutTestContext(t *testing.T) context.Context {
	t.Helper()

	t.Setenv("XDG_STATE_HOME", t.TempDir())

	cc := &CLIContext{Logger: slog.New(slog.NewTextHandler(os.Stderr, nil))}

	return context.WithValue(context.Background(), cliContextKey{}, cc)
}

func TestNewLogoutCmd_Structure(t *testing.T) {
	t.Parallel()

	cmd := newLogoutCmd()
	assert.Equal(t, "logout", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestRunLogout_RemovesToken(t *testing.T) {
	ctx := logoutTestContext(t)

	require.NoError(t, tokenfile.Save(config.TokenFilePath(), &oauth2.Token{
		AccessToken: "a",
		Expiry:      time.Now().Add(time.Hour),
	}, nil))

	cmd := newLogoutCmd()
	cmd.SetContext(ctx)

	require.NoError(t, runLogout(cmd, nil))

	tok, _, err := tokenfile.Load(config.TokenFilePath())
	require.NoError(t, err)
	require.Nil(t, tok)
}

func TestRunLogout_AlreadyLoggedOut(t *testing.T) {
	ctx := logoutTestContext(t)

	cmd := newLogoutCmd()
	cmd.SetContext(ctx)

	require.NoError(t, runLogout(cmd, nil))
}
