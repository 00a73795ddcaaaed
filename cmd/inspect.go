package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dadoslab/rfbdash/internal/aggregate"
	"github.com/dadoslab/rfbdash/internal/dataset"
	"github.com/dadoslab/rfbdash/internal/geodata"
	"github.com/dadoslab/rfbdash/internal/model"
)

var inspectTopN int

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load the dataset and print a summary to stdout",
	Long:  "Loads the configured CSV parts, reports row counts, data quality anomalies, the status distribution, and the busiest municipalities. Useful for sanity-checking a fresh extract before serving it.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		formatInspection(os.Stdout, snap, inspectTopN)

		boundaries, err := loadBoundaries()
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nBoundary file not checked: %v\n", err)
			return nil
		}
		formatBoundaryCheck(os.Stdout, snap, boundaries)
		return nil
	},
}

func formatInspection(w io.Writer, snap *dataset.Snapshot, topN int) {
	s := aggregate.ComputeSummary(snap.Rows)

	fmt.Fprintf(w, "Rows: %d (%d parts, loaded %s)\n",
		snap.Stats.Rows, snap.Stats.Parts, snap.LoadedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Headquarters: %d  Branches: %d\n", s.Headquarters, s.Branches)
	fmt.Fprintf(w, "Municipalities: %d  Distinct CNAEs: %d\n", s.Municipalities, s.ActivityCodes)

	fmt.Fprintln(w, "\nData quality:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  missing opening date\t%d\n", snap.Stats.MissingOpeningDate)
	fmt.Fprintf(tw, "  missing status date\t%d\n", snap.Stats.MissingStatusDate)
	fmt.Fprintf(tw, "  status before opening\t%d\n", snap.Stats.StatusBeforeOpening)
	fmt.Fprintf(tw, "  unknown status code\t%d\n", snap.Stats.UnknownStatusCode)
	fmt.Fprintf(tw, "  unknown type code\t%d\n", snap.Stats.UnknownTypeCode)
	tw.Flush()

	fmt.Fprintln(w, "\nStatus distribution:")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range aggregate.StatusDistribution(snap.Rows) {
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%.2f%%\n", d.Code, d.Label, d.Count, d.Percent)
	}
	tw.Flush()

	top, _ := aggregate.TopMunicipalities(snap.Rows, topN)
	fmt.Fprintln(w, "\nTop municipalities:")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range top {
		fmt.Fprintf(tw, "  %s\t%d\t%.2f%%\n", m.Name, m.Count, m.Percent)
	}
	tw.Flush()

	fmt.Fprintln(w, "\nSample rows:")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	sample := snap.Rows
	if len(sample) > 5 {
		sample = sample[:5]
	}
	for i := range sample {
		e := &sample[i]
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
			model.FormatCNPJ(e.BaseCNPJ), e.Type.Label(), e.Status.Label(), e.Municipality)
	}
	tw.Flush()
}

func formatBoundaryCheck(w io.Writer, snap *dataset.Snapshot, boundaries *geodata.BoundarySet) {
	mc := aggregate.CountByMunicipality(snap.Rows)

	var unmatched []string
	for key, name := range mc.Display {
		if _, ok := boundaries.Get(key); !ok {
			unmatched = append(unmatched, name)
		}
	}
	sort.Strings(unmatched)

	fmt.Fprintf(w, "\nBoundaries: %d municipalities in the boundary file\n", boundaries.Len())
	if len(unmatched) == 0 {
		fmt.Fprintln(w, "Every municipality in the data has a boundary.")
		return
	}
	fmt.Fprintf(w, "Municipalities without a boundary (%d):\n", len(unmatched))
	for _, name := range unmatched {
		fmt.Fprintf(w, "  %s\n", name)
	}
}

func init() {
	inspectCmd.Flags().IntVar(&inspectTopN, "top", 10, "how many municipalities to list")
	rootCmd.AddCommand(inspectCmd)
}
