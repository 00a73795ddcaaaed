package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dadoslab/rfbdash/internal/export"
	"github.com/dadoslab/rfbdash/internal/filter"
	"github.com/dadoslab/rfbdash/internal/model"
)

var (
	exportOutput         string
	exportFormat         string
	exportStatuses       []string
	exportTypes          []string
	exportMunicipalities []string
	exportYearMin        int
	exportYearMax        int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the filtered dataset to a CSV or XLSX file",
	Long: `Applies the same filters the dashboard sidebar offers and writes the
matching rows to a file.

Examples:
  # Active establishments opened since 2010, as CSV
  rfbdash export --status 02 --year-min 2010 --output ativos.csv

  # Everything in Porto Alegre, as a spreadsheet
  rfbdash export --municipality "Porto Alegre" --format xlsx --output poa.xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var encode func([]model.Establishment) ([]byte, error)
		switch exportFormat {
		case "csv":
			encode = export.CSV
		case "xlsx":
			encode = export.XLSX
		default:
			return eris.Errorf("export: unknown format %q (want csv or xlsx)", exportFormat)
		}

		ctx := cmd.Context()
		snap, err := loadSnapshot(ctx)
		if err != nil {
			return err
		}

		spec := filter.Spec{
			Municipalities: exportMunicipalities,
			YearMin:        exportYearMin,
			YearMax:        exportYearMax,
		}
		for _, s := range exportStatuses {
			spec.Statuses = append(spec.Statuses, model.RegistrationStatus(s))
		}
		for _, t := range exportTypes {
			spec.Types = append(spec.Types, model.EstablishmentType(t))
		}
		if err := spec.Validate(); err != nil {
			return err
		}

		rows, err := filter.Apply(snap.Rows, spec)
		if err != nil {
			return err
		}

		data, err := encode(rows)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return eris.Wrapf(err, "export: write %s", exportOutput)
		}

		recordCLIExport(cmd, exportFormat, len(rows), spec)

		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(rows), exportOutput)
		return nil
	},
}

func recordCLIExport(cmd *cobra.Command, format string, rows int, spec filter.Spec) {
	st, err := initStore(cmd.Context())
	if err != nil {
		zap.L().Warn("export not recorded", zap.Error(err))
		return
	}
	defer st.Close() //nolint:errcheck

	specJSON, err := json.Marshal(spec)
	if err != nil {
		specJSON = []byte("{}")
	}
	if _, err := st.RecordExport(cmd.Context(), format, rows, string(specJSON)); err != nil {
		zap.L().Warn("export not recorded", zap.Error(err))
	}
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "estabelecimentos.csv", "output file path")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringSliceVar(&exportStatuses, "status", nil, "registration status codes to keep")
	exportCmd.Flags().StringSliceVar(&exportTypes, "type", nil, "establishment type codes to keep (1=matriz, 2=filial)")
	exportCmd.Flags().StringSliceVar(&exportMunicipalities, "municipality", nil, "municipality names to keep")
	exportCmd.Flags().IntVar(&exportYearMin, "year-min", 0, "earliest opening year to keep")
	exportCmd.Flags().IntVar(&exportYearMax, "year-max", 0, "latest opening year to keep")
	rootCmd.AddCommand(exportCmd)
}
