package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/engine"
	"github.com/IshaanNene/MapGoat/internal/export"
	"github.com/IshaanNene/MapGoat/internal/task"
	"github.com/IshaanNene/MapGoat/internal/types"
)

var (
	scrapeMany    int
	scrapeLang    string
	scrapeRegion  string
	scrapeDeep    bool
	scrapeNoDeep  bool
	scrapeWorkers int
	scrapeExport  string
	scrapeFormat  string
)

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [query]",
		Short: "Scrape one query and print the results",
		Long: `Search Google Maps for the query, collect up to --many listings and print
them as a table. With --deep the search continues through the city's
neighbourhoods when the main results run short.`,
		Example: `  mapgoat scrape pizza New York --many 30 --lang en --region US
  mapgoat scrape "кафе Москва" --export cafes.xlsx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runScrape,
	}

	cmd.Flags().IntVarP(&scrapeMany, "many", "m", 0, "number of places to collect (default from config)")
	cmd.Flags().StringVar(&scrapeLang, "lang", "", "interface language, e.g. en or ru")
	cmd.Flags().StringVar(&scrapeRegion, "region", "", "region code, e.g. US or RU")
	cmd.Flags().BoolVar(&scrapeDeep, "deep", true, "widen the search to neighbourhoods when results run short")
	cmd.Flags().BoolVar(&scrapeNoDeep, "no-deep", false, "disable neighbourhood search")
	cmd.Flags().IntVarP(&scrapeWorkers, "workers", "n", 0, "concurrent detail page workers (default from config)")
	cmd.Flags().StringVarP(&scrapeExport, "export", "o", "", "write results to this file")
	cmd.Flags().StringVarP(&scrapeFormat, "format", "f", "", "export format: xlsx, csv, json (default from file extension)")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, logger, closeLog, err := bootstrap(func(cfg *config.Config) {
		if scrapeWorkers > 0 {
			cfg.Scraper.MaxWorkers = scrapeWorkers
		}
	})
	if err != nil {
		return err
	}
	defer closeLog()

	format, err := exportFormat(scrapeExport, scrapeFormat)
	if err != nil {
		return err
	}

	deep := cfg.Scraper.DeepSearch
	if cmd.Flags().Changed("deep") {
		deep = scrapeDeep
	}
	if scrapeNoDeep {
		deep = false
	}

	params, err := engine.Params{
		Query:      strings.Join(args, " "),
		Many:       scrapeMany,
		Lang:       scrapeLang,
		Region:     scrapeRegion,
		DeepSearch: deep,
		Workers:    cfg.Scraper.MaxWorkers,
	}.Normalize(cfg.Scraper)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg, logger)
	defer a.Close(context.Background())

	fmt.Printf("🗺  MapGoat\n")
	fmt.Printf("   Query:  %s\n", params.Query)
	fmt.Printf("   Config: %d places, lang %s, region %s, deep search %v, %d workers\n\n",
		params.Many, params.Lang, params.Region, params.DeepSearch, params.Workers)

	start := time.Now()
	t := a.runner.Tasks().Create(params.Query, params.Many)
	runErr := a.runner.Run(ctx, t, params)

	results := t.Results()
	if len(results) > 0 {
		printResults(results)
	}
	fmt.Printf("\nTask %s %s in %s: %d places\n",
		t.ID(), t.Status(), engine.FormatDuration(time.Since(start)), len(results))

	if scrapeExport != "" && len(results) > 0 {
		if err := writeExport(scrapeExport, format, toRecords(t.ID(), results)); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", scrapeExport)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// exportFormat picks the format from the flag, then the file extension.
func exportFormat(path, flag string) (export.Format, error) {
	if flag == "" && path != "" {
		flag = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	return export.ByName(flag)
}

func toRecords(taskID string, results []task.Result) []types.Record {
	now := time.Now().UTC()
	records := make([]types.Record, len(results))
	for i, r := range results {
		records[i] = types.Record{
			ID:        int64(r.ID),
			TaskID:    taskID,
			Place:     r.Place,
			Timestamp: now,
		}
	}
	return records
}

func writeExport(path string, format export.Format, records []types.Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := export.Write(f, format, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s export: %w", format, err)
	}
	return f.Close()
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	return t
}

func printResults(results []task.Result) {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Name", "Address", "Phone", "Rating", "Website"})
	for _, r := range results {
		t.AppendRow(table.Row{r.ID, r.Name, r.Address, r.Phone, r.Rating, r.Website})
	}
	t.Render()
}
