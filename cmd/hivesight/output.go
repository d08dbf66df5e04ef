package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nvandessel/hivesight/internal/models"
	"github.com/nvandessel/hivesight/internal/store"
	"github.com/nvandessel/hivesight/internal/survey"
)

var printer = message.NewPrinter(language.English)

// printReport renders a run for the terminal.
func printReport(w io.Writer, r *survey.Report) {
	q := r.Request.Question
	res := r.Result

	fmt.Fprintf(w, "Run %s  (%s/%s, seed %d)\n", shortID(r.ID), r.Provider, r.Model, r.Seed)
	fmt.Fprintf(w, "Statement: %s\n", q.Statement)
	fmt.Fprintf(w, "Kind:      %s\n", q.Kind)
	fmt.Fprintf(w, "Valid:     %d/%d (%.0f%%)\n", res.ValidCount, res.TotalCount, res.YieldRate()*100)
	if r.Cancelled {
		fmt.Fprintln(w, "Status:    cancelled")
	}
	fmt.Fprintln(w)

	if res.ValidCount == 0 {
		fmt.Fprintln(w, "No valid answers.")
		return
	}

	fmt.Fprintln(w, estimateLine(res))
	if q.Kind == models.KindLikert {
		fmt.Fprintf(w, "Median %.1f, standard deviation %.2f\n", res.Median, res.StdDev)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ANSWER\tSHARE\t")
	for _, label := range q.AnswerLabels() {
		share := res.Distribution[label]
		fmt.Fprintf(tw, "%s\t%5.1f%%\t%s\n", label, share*100, bar(share))
	}
	tw.Flush()

	if res.Pivot != nil {
		fmt.Fprintln(w)
		printPivot(w, res.Pivot)
	}
}

// estimateLine states the point estimate with its interval when defined.
func estimateLine(res models.Result) string {
	ci := res.ConfidenceInterval
	if res.Kind == models.KindLikert {
		if !ci.Defined() {
			return fmt.Sprintf("Mean score %.2f (interval undefined)", res.PointEstimate)
		}
		return fmt.Sprintf("Mean score %.2f, 95%% CI [%.2f, %.2f]", res.PointEstimate, *ci.Low, *ci.High)
	}
	if !ci.Defined() {
		return fmt.Sprintf("%q %.1f%% (interval undefined)", res.Target, res.PointEstimate*100)
	}
	return fmt.Sprintf("%q %.1f%%, 95%% CI [%.1f%%, %.1f%%]", res.Target, res.PointEstimate*100, *ci.Low*100, *ci.High*100)
}

func printPivot(w io.Writer, p *models.Pivot) {
	fmt.Fprintf(w, "By %s:\n", p.Field)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := append([]string{strings.ToUpper(p.Field), "N"}, p.Answers...)
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	for _, bucket := range p.Buckets {
		row := []string{bucket, fmt.Sprint(p.Counts[bucket])}
		for _, a := range p.Answers {
			row = append(row, fmt.Sprintf("%.1f%%", p.Shares[bucket][a]*100))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	tw.Flush()
}

// printRunSummaries renders history rows, newest first.
func printRunSummaries(w io.Writer, runs []store.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tKIND\tVALID\tESTIMATE\tSTATEMENT")
	for _, r := range runs {
		est := fmt.Sprintf("%.2f", r.PointEstimate)
		if r.Kind != models.KindLikert {
			est = fmt.Sprintf("%.1f%%", r.PointEstimate*100)
		}
		if r.ValidCount == 0 {
			est = "-"
		}
		if r.Cancelled {
			est += " (cancelled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			shortID(r.ID), r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Kind,
			r.ValidCount, r.TotalCount, est, truncate(r.Statement, 50))
	}
	tw.Flush()
}

// bar draws a 20-cell share bar.
func bar(share float64) string {
	n := int(share*20 + 0.5)
	return strings.Repeat("#", n)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatIncome renders an income with thousands separators.
func formatIncome(v float64) string {
	return printer.Sprintf("%.0f", v)
}
