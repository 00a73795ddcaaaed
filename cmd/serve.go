package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dadoslab/rfbdash/internal/server"
	"github.com/dadoslab/rfbdash/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		snap, err := loadSnapshot(ctx)
		if err != nil {
			return err
		}

		boundaries, err := loadBoundaries()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			// The export log is a convenience; the dashboard works without it.
			zap.L().Warn("export log unavailable", zap.Error(err))
			st = nil
		} else {
			defer st.Close() //nolint:errcheck
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		dash := server.New(snap, boundaries, exportLog(st), *cfg)
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: dash.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Int("rows", snap.Stats.Rows),
			zap.Int("boundaries", boundaries.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// exportLog turns a typed nil into a nil interface so the server can tell
// the store is absent.
func exportLog(st *store.SQLiteStore) store.Store {
	if st == nil {
		return nil
	}
	return st
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
