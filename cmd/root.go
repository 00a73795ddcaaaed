package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dadoslab/rfbdash/internal/config"
	"github.com/dadoslab/rfbdash/internal/dataset"
	"github.com/dadoslab/rfbdash/internal/geodata"
	"github.com/dadoslab/rfbdash/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rfbdash",
	Short: "Dashboard de estabelecimentos da RFB no Rio Grande do Sul",
	Long:  "Serves an interactive dashboard over the RFB establishment registry extract for Rio Grande do Sul: filters, aggregations, a municipality choropleth, and CSV/XLSX export.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// snapshots memoizes dataset loads so the parse cost is paid once per
// process no matter how many commands or sessions ask for the data.
var snapshots = dataset.NewCache()

func loadSnapshot(ctx context.Context) (*dataset.Snapshot, error) {
	return snapshots.Load(ctx, dataset.Source{
		Parts:          cfg.Dataset.Parts,
		ActivityLookup: cfg.Dataset.ActivityLookup,
	})
}

func loadBoundaries() (*geodata.BoundarySet, error) {
	return geodata.Load(cfg.Boundary.Path, cfg.Boundary.NameProperty)
}

func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
