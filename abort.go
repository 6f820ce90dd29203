package main

import (
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/chunkupload/internal/config"
)

func newAbortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort",
		Short: "Abort the running watch daemon's in-flight upload",
		Long: `Signal the running "watch" daemon to abort its current upload.

Abort takes priority over pause: once aborted, the upload's event
stream closes with no finish event and cannot be resumed or retried.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := sendDaemonSignal(config.PIDFilePath(), syscall.SIGWINCH); err != nil {
				return err
			}

			cc.Statusf("Aborted upload\n")

			return nil
		},
	}
}
