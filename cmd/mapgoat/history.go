package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/MapGoat/internal/export"
	"github.com/IshaanNene/MapGoat/internal/storage"
	"github.com/IshaanNene/MapGoat/internal/types"
)

var (
	historyLimit  int
	historyTask   string
	exportFmt     string
	exportOutPath string
)

// historyCmd creates the "history" subcommand.
func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored results",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum rows to show")
	cmd.Flags().StringVarP(&historyTask, "task", "t", "", "show only the results of this task")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	records, err := queryStore(cmd.Context(), func(ctx context.Context, s storage.Store) ([]types.Record, error) {
		if historyTask != "" {
			return s.ByTask(ctx, historyTask)
		}
		return s.Recent(ctx, historyLimit)
	})
	if err != nil {
		return err
	}
	if historyTask != "" && historyLimit > 0 && len(records) > historyLimit {
		records = records[:historyLimit]
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "Task", "Name", "Address", "Phone", "Rating", "Website", "Saved"})
	for _, r := range records {
		t.AppendRow(table.Row{r.ID, r.TaskID, r.Name, r.Address, r.Phone, r.Rating, r.Website,
			r.Timestamp.Local().Format("2006-01-02 15:04")})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d records", len(records))})
	t.Render()
	return nil
}

// exportCmd creates the "export" subcommand.
func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [task-id]",
		Short: "Export a task's stored results to a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}

	cmd.Flags().StringVarP(&exportFmt, "format", "f", "xlsx", "export format: xlsx, csv, json")
	cmd.Flags().StringVarP(&exportOutPath, "output", "o", "", "output path (default results_<task-id>.<ext>)")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	taskID := args[0]
	format, err := export.ByName(exportFmt)
	if err != nil {
		return err
	}

	records, err := queryStore(cmd.Context(), func(ctx context.Context, s storage.Store) ([]types.Record, error) {
		return s.ByTask(ctx, taskID)
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no results found for task %s", taskID)
	}

	path := exportOutPath
	if path == "" {
		path = export.Filename(taskID, format)
	}
	if err := writeExport(path, format, records); err != nil {
		return err
	}
	fmt.Printf("Exported %d records to %s\n", len(records), path)
	return nil
}

// queryStore opens the configured store, runs fn and closes it.
func queryStore(ctx context.Context, fn func(context.Context, storage.Store) ([]types.Record, error)) ([]types.Record, error) {
	cfg, logger, closeLog, err := bootstrap(nil)
	if err != nil {
		return nil, err
	}
	defer closeLog()

	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	records, err := fn(ctx, store)
	if errors.Is(err, types.ErrNoDatabase) {
		return nil, fmt.Errorf("storage is disabled (driver %q): %w", cfg.Storage.Driver, err)
	}
	return records, err
}
