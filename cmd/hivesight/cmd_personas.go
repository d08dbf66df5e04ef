package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/hivesight/internal/persona"
)

func newPersonasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "Summarize the persona dataset",
		Long: `Load the persona dataset and report its size, total weight, weighted mean
age and income, and regions. Demographic flags restrict the summary to the
population a run with the same flags would sample from.

Examples:
  hivesight personas
  hivesight personas --age-min 18 --age-max 34 --region CA`,
		Args: cobra.NoArgs,
		RunE: runPersonas,
	}
	addDemographicFlags(cmd)
	return cmd
}

func runPersonas(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	demo, err := demographicsFromFlags(cmd)
	if err != nil {
		return err
	}
	filters := demo.Filters()
	if err := persona.ValidateFilters(filters); err != nil {
		return err
	}

	a, err := newApp(cmd, appNeeds{pool: true})
	if err != nil {
		return err
	}
	defer a.Close()

	summary := persona.Summarize(a.pool.Filter(filters...))

	out := cmd.OutOrStdout()
	if jsonOut {
		return json.NewEncoder(out).Encode(map[string]interface{}{
			"path":    a.cfg.Personas.Path,
			"total":   a.pool.Len(),
			"summary": summary,
		})
	}

	fmt.Fprintf(out, "Dataset: %s (%d personas)\n", a.cfg.Personas.Path, a.pool.Len())
	if len(filters) > 0 {
		var parts []string
		for _, f := range filters {
			parts = append(parts, f.String())
		}
		fmt.Fprintf(out, "Filter:  %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintln(out)
	if summary.Count == 0 {
		fmt.Fprintln(out, "No personas match.")
		return nil
	}
	fmt.Fprintf(out, "  Matching:        %d\n", summary.Count)
	fmt.Fprintf(out, "  Total weight:    %.2f\n", summary.TotalWeight)
	fmt.Fprintf(out, "  Weighted age:    %.1f\n", summary.WeightedAge)
	fmt.Fprintf(out, "  Weighted income: %s\n", formatIncome(summary.WeightedIncome))
	fmt.Fprintf(out, "  Regions (%d):     %s\n", len(summary.Regions), strings.Join(summary.Regions, ", "))
	return nil
}
