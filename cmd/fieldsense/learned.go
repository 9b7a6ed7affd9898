package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/straja-ai/fieldsense/internal/app"
	"github.com/straja-ai/fieldsense/internal/journal"
)

var learnedJSON bool

var learnedCmd = &cobra.Command{
	Use:   "learned",
	Short: "Inspect or reset learned field patterns",
}

var learnedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List learned patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := app.OpenLearned(cfg.Data.LearnedPath)
		if err != nil {
			return err
		}
		entries := store.Entries()
		if learnedJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tTYPE\tFROM\tPLATFORM\tLEARNED")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Key, e.Type, e.LearnedFrom, e.Platform, e.LearnedAt.Format("2006-01-02"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d patterns in %s\n", len(entries), store.Path())
		return nil
	},
}

var learnedClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every learned pattern",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := app.OpenLearned(cfg.Data.LearnedPath)
		if err != nil {
			return err
		}
		n := store.Len()
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %d patterns\n", n)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learned pattern count and journal totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := app.OpenLearned(cfg.Data.LearnedPath)
		if err != nil {
			return err
		}
		out := map[string]any{"learned_patterns": store.Len()}

		if cfg.Data.JournalPath != "" {
			j, err := journal.Open(cfg.Data.JournalPath)
			if err != nil {
				return err
			}
			defer j.Close()
			sum, err := j.Summary(cmd.Context())
			if err != nil {
				return err
			}
			out["journal"] = sum
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	learnedListCmd.Flags().BoolVar(&learnedJSON, "json", false, "print JSON instead of a table")
	learnedCmd.AddCommand(learnedListCmd, learnedClearCmd)
}
