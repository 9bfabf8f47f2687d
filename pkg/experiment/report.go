package experiment

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
)

// WriteJSON writes the full report
func WriteJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteCSV writes one row per variant, step and metric. The true-theta
// reference, when present, is written as step -1.
func WriteCSV(w io.Writer, report *Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"variant", "step", "metric", "train", "test"}); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, run := range report.Runs {
		for step, snap := range run.Snapshots {
			for _, name := range snap.Names() {
				p, _ := snap.Get(name)
				record := []string{run.Variant, strconv.Itoa(step), name, format(p.Train), format(p.Test)}
				if err := writer.Write(record); err != nil {
					return err
				}
			}
		}
	}
	if report.TrueTheta != nil {
		for _, name := range report.TrueTheta.Names() {
			p, _ := report.TrueTheta.Get(name)
			if err := writer.Write([]string{"true-theta", "-1", name, format(p.Train), format(p.Test)}); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteTable writes the final value of metric for every run
func WriteTable(w io.Writer, report *Report, metric string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "VARIANT\tTRAIN %s\tTEST %s\tDURATION\n", metric, metric)
	for _, run := range report.Runs {
		final := run.Final()
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%dms\n", run.Variant, final.Train(metric), final.Test(metric), run.DurationMS)
	}
	if report.TrueTheta != nil {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t-\n", "true-theta", report.TrueTheta.Train(metric), report.TrueTheta.Test(metric))
	}
	return tw.Flush()
}
