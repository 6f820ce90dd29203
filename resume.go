package main

import (
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/chunkupload/internal/config"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused upload in the running watch daemon",
		Long: `Signal the running "watch" daemon to resume an upload previously
paused with "pause". Dispatching restarts from the chunks not yet
completed; already-completed chunks are not re-sent.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := sendDaemonSignal(config.PIDFilePath(), syscall.SIGUSR1); err != nil {
				return err
			}

			cc.Statusf("Resumed upload\n")

			return nil
		},
	}
}
