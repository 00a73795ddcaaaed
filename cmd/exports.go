package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/dadoslab/rfbdash/internal/store"
)

var exportsLimit int

var exportsCmd = &cobra.Command{
	Use:   "exports",
	Short: "List recent exports from the export log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := st.ListExports(ctx, exportsLimit)
		if err != nil {
			return eris.Wrap(err, "exports list")
		}

		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No exports recorded.")
			return nil
		}

		formatExportsList(os.Stdout, records)
		return nil
	},
}

func formatExportsList(w io.Writer, records []store.ExportRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tFORMAT\tROWS\tFILTER")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.Format, r.Rows, r.Filter)
	}
	tw.Flush()
}

func init() {
	exportsCmd.Flags().IntVar(&exportsLimit, "limit", 20, "max exports to list")
	rootCmd.AddCommand(exportsCmd)
}
