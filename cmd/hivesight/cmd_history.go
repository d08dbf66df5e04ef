package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded runs",
		Long: `List, show and delete runs recorded in ~/.hivesight/history.db.

Runs are addressed by their ID or any unique prefix of it.

Examples:
  hivesight history list --limit 5
  hivesight history show 3f2a91c0
  hivesight history show 3f2a --export respondents.csv
  hivesight history delete 3f2a91c0`,
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistoryDeleteCmd(),
	)
	return cmd
}

// openHistory builds an app with the history store, refusing when history is off.
func openHistory(cmd *cobra.Command) (*app, error) {
	a, err := newApp(cmd, appNeeds{store: true})
	if err != nil {
		return nil, err
	}
	if !a.cfg.History.Enabled {
		a.Close()
		return nil, fmt.Errorf("history is disabled (set history.enabled to true)")
	}
	return a, nil
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			kindStr, _ := cmd.Flags().GetString("kind")

			opts := store.ListOptions{Limit: limit}
			if kindStr != "" {
				kind, err := models.ParseQuestionKind(kindStr)
				if err != nil {
					return err
				}
				opts.Kind = kind
			}

			a, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.store.ListRuns(cmdContext(cmd), opts)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
			}
			printRunSummaries(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().Int("limit", store.DefaultListLimit, "Maximum number of runs to list")
	cmd.Flags().String("kind", "", "Only list runs of this kind")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			exportPath, _ := cmd.Flags().GetString("export")

			a, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.store.GetRun(cmdContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}

			if exportPath != "" {
				if err := exportCSV(exportPath, report); err != nil {
					return err
				}
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			if exportPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nRespondents written to %s\n", exportPath)
			}
			return nil
		},
	}
	cmd.Flags().String("export", "", "Write per-respondent CSV to this path")
	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			a, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmdContext(cmd)
			report, err := a.store.GetRun(ctx, args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			if err := a.store.DeleteRun(ctx, report.ID); err != nil {
				return fmt.Errorf("failed to delete run: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "deleted",
					"id":     report.ID,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", shortID(report.ID))
			return nil
		},
	}
}
