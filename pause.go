package main

import (
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/chunkupload/internal/config"
)

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the running watch daemon's in-flight upload",
		Long: `Signal the running "watch" daemon to pause its current upload.

Pausing cancels only the in-flight chunk PUTs; chunks already completed
stay completed. The daemon waits for a subsequent "resume" before
dispatching any further chunks.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := sendDaemonSignal(config.PIDFilePath(), syscall.SIGHUP); err != nil {
				return err
			}

			cc.Statusf("Paused running upload\n")

			return nil
		},
	}
}
