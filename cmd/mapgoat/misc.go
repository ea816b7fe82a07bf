package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/MapGoat/internal/config"
	"github.com/IshaanNene/MapGoat/internal/regions"
)

// regionsCmd creates the "regions" subcommand.
func regionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions [query]",
		Short: "List the cities with neighbourhood search, or the neighbourhoods a query matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := newTable()
			if len(args) == 0 {
				t.AppendHeader(table.Row{"City", "Neighbourhoods"})
				for _, city := range regions.Cities() {
					t.AppendRow(table.Row{city, len(regions.Lookup(city))})
				}
				t.Render()
				return nil
			}

			query := strings.Join(args, " ")
			city := regions.City(query)
			if city == "" {
				fmt.Printf("No known city in %q; deep search will use the main results only.\n", query)
				return nil
			}
			t.SetTitle(city)
			t.AppendHeader(table.Row{"#", "Neighbourhood", "Search query"})
			for i, hood := range regions.Lookup(query) {
				t.AppendRow(table.Row{i + 1, hood, query + " " + hood})
			}
			t.Render()
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("MapGoat %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
