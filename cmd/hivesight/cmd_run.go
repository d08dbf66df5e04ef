package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/hivesight/internal/aggregate"
	"github.com/nvandessel/hivesight/internal/constants"
	"github.com/nvandessel/hivesight/internal/dispatch"
	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/survey"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <statement>",
		Short: "Run a simulated survey",
		Long: `Survey a weighted sample of personas with a statement and report the
estimate, its 95% confidence interval and the answer distribution.

Examples:
  hivesight run "Remote work improves productivity." -n 200
  hivesight run "Would you buy an electric car?" --kind yes_no --pivot region
  hivesight run "Which plan would you pick?" --kind mc -o Basic -o Pro -o Enterprise --target 2
  hivesight run "Taxes are too high." --age-min 18 --age-max 34 --region CA --region NY --export out.csv`,
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}

	cmd.Flags().String("kind", "likert", "Answer format: likert, multiple_choice (mc) or yes_no")
	cmd.Flags().StringArrayP("option", "o", nil, "Multiple choice option (repeat in order)")
	cmd.Flags().IntP("sample-size", "n", 100, fmt.Sprintf("Number of personas to survey (1-%d)", constants.MaxSampleSize))
	cmd.Flags().String("model", "", "Model identifier or configured alias")
	cmd.Flags().String("pivot", "", "Break results down by age, income or region")
	cmd.Flags().Int("target", 1, "Multiple choice option whose share is estimated (1-based)")
	cmd.Flags().Uint64("seed", 0, "Seed for reproducible sampling (default random)")
	cmd.Flags().String("export", "", "Write per-respondent CSV to this path")
	cmd.Flags().Duration("timeout", 0, "Abort the run after this long (0 = no limit)")
	cmd.Flags().Bool("no-history", false, "Do not record this run in history")
	cmd.Flags().Bool("quiet", false, "Suppress the progress line")
	addDemographicFlags(cmd)

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	exportPath, _ := cmd.Flags().GetString("export")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	noHistory, _ := cmd.Flags().GetBool("no-history")
	quiet, _ := cmd.Flags().GetBool("quiet")

	req, err := requestFromFlags(cmd, args[0])
	if err != nil {
		return err
	}
	// Fail on bad input before loading personas or reaching the oracle.
	if err := req.Validate(); err != nil {
		return err
	}

	a, err := newApp(cmd, appNeeds{pool: true, oracle: true, store: !noHistory})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(cmdContext(cmd))
	defer cancel()
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	deps := a.deps()
	var progressDone chan struct{}
	if !quiet && !jsonOut {
		progress := make(chan dispatch.Progress, req.SampleSize)
		deps.Dispatch.Progress = progress
		progressDone = make(chan struct{})
		go func() {
			defer close(progressDone)
			printProgress(cmd, progress)
		}()
	}

	report, runErr := survey.RunSimulation(ctx, deps, req)
	if progressDone != nil {
		// Finish the progress line before printing results.
		close(deps.Dispatch.Progress)
		<-progressDone
	}
	if report == nil {
		return runErr
	}

	if a.store != nil {
		if err := a.store.SaveRun(context.WithoutCancel(ctx), report); err != nil {
			a.logger.Warn("failed to record run", "run", report.ID, "error", err)
		}
	}

	if exportPath != "" {
		if err := exportCSV(exportPath, report); err != nil {
			return err
		}
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(cmd.OutOrStdout(), report)
		if exportPath != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\nRespondents written to %s\n", exportPath)
		}
	}

	if errors.Is(runErr, aggregate.ErrNoValidResponses) {
		return fmt.Errorf("run %s: %w", shortID(report.ID), runErr)
	}
	if report.Cancelled {
		return fmt.Errorf("run %s cancelled before all answers arrived", shortID(report.ID))
	}
	return runErr
}

// requestFromFlags builds a simulation request from the run flags.
func requestFromFlags(cmd *cobra.Command, statement string) (survey.Request, error) {
	kindStr, _ := cmd.Flags().GetString("kind")
	options, _ := cmd.Flags().GetStringArray("option")
	sampleSize, _ := cmd.Flags().GetInt("sample-size")
	model, _ := cmd.Flags().GetString("model")
	pivot, _ := cmd.Flags().GetString("pivot")
	target, _ := cmd.Flags().GetInt("target")

	kind, err := models.ParseQuestionKind(kindStr)
	if err != nil {
		return survey.Request{}, err
	}
	if target < 1 {
		return survey.Request{}, fmt.Errorf("--target must be 1 or greater, got %d", target)
	}

	demo, err := demographicsFromFlags(cmd)
	if err != nil {
		return survey.Request{}, err
	}

	req := survey.Request{
		Question: models.Question{
			Statement: statement,
			Kind:      kind,
			Options:   options,
		},
		SampleSize:   sampleSize,
		Demographics: demo,
		Model:        model,
		PivotField:   pivot,
		Target:       target - 1,
	}
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		req.Seed = &seed
	}
	return req, nil
}

// addDemographicFlags registers the population filter flags.
func addDemographicFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("age-min", 0, "Minimum age (inclusive)")
	cmd.Flags().Float64("age-max", 0, "Maximum age (inclusive)")
	cmd.Flags().Float64("income-min", 0, "Minimum income (inclusive)")
	cmd.Flags().Float64("income-max", 0, "Maximum income (inclusive)")
	cmd.Flags().StringSlice("region", nil, "Restrict to region (repeat or comma-separate)")
}

// demographicsFromFlags reads only the filter flags the user set.
func demographicsFromFlags(cmd *cobra.Command) (survey.Demographics, error) {
	var d survey.Demographics
	bounds := []struct {
		name string
		dst  **float64
	}{
		{"age-min", &d.AgeMin},
		{"age-max", &d.AgeMax},
		{"income-min", &d.IncomeMin},
		{"income-max", &d.IncomeMax},
	}
	for _, b := range bounds {
		if !cmd.Flags().Changed(b.name) {
			continue
		}
		v, err := cmd.Flags().GetFloat64(b.name)
		if err != nil {
			return survey.Demographics{}, err
		}
		*b.dst = &v
	}
	d.Regions, _ = cmd.Flags().GetStringSlice("region")
	return d, nil
}

func printProgress(cmd *cobra.Command, progress <-chan dispatch.Progress) {
	w := cmd.ErrOrStderr()
	failed := 0
	last := time.Time{}
	var p dispatch.Progress
	seen := false
	for p = range progress {
		seen = true
		if p.Failed {
			failed++
		}
		// Throttle redraws; always draw the final unit.
		if p.Completed < p.Total && time.Since(last) < 100*time.Millisecond {
			continue
		}
		last = time.Now()
		fmt.Fprintf(w, "\rSurveyed %d/%d (%d failed)", p.Completed, p.Total, failed)
	}
	if seen {
		fmt.Fprintln(w)
	}
}

func exportCSV(path string, report *survey.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := survey.WriteCSV(f, report); err != nil {
		f.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	return f.Close()
}
