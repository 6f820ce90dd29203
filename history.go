package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/chunkupload/internal/config"
	"github.com/tonimelisma/chunkupload/internal/history"
)

// defaultHistoryLimit bounds how many rows "history" prints without --limit.
const defaultHistoryLimit = 20

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent upload attempts",
		Long: `Print the most recent upload attempts from the local audit ledger.
This ledger is write-only from the engine's perspective — it never
feeds back into resumption, which relies solely on the server's
reported uploadedChunks.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "maximum number of rows to print")

	return cmd
}

func runHistory(cmd *cobra.Command, limit int) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	store, err := history.Open(ctx, config.HistoryDBPath(), cc.Logger)
	if err != nil {
		return fmt.Errorf("opening history ledger: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("querying history: %w", err)
	}

	if len(records) == 0 {
		cc.Statusf("No upload history yet\n")

		return nil
	}

	printHistoryTable(records)

	return nil
}

func printHistoryTable(records []history.Record) {
	headers := []string{"STARTED", "FILE", "SIZE", "STATUS", "DETAIL"}
	rows := make([][]string, 0, len(records))

	for _, r := range records {
		rows = append(rows, []string{
			formatTime(r.StartedAt),
			r.FileName,
			formatSize(r.FileSize),
			r.Status,
			r.Detail,
		})
	}

	printTable(os.Stdout, headers, rows)
}
