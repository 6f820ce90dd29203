package main

import (
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/chunkupload/internal/config"
)

func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Retry after a MultipleChunkUploadError in the running watch daemon",
		Long: `Signal the running "watch" daemon to retry the current upload after it
has stopped with a retryable error (three or more chunk failures — one,
if the file has three chunks or fewer).

Once that error is raised, this is the ONLY way the upload continues.
Chunk failures below that threshold are attempted again automatically
in the engine's next pass.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := sendDaemonSignal(config.PIDFilePath(), syscall.SIGUSR2); err != nil {
				return err
			}

			cc.Statusf("Retrying upload\n")

			return nil
		},
	}
}
