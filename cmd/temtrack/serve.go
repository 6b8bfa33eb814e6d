package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/avialab/temtrack/db"
	"github.com/avialab/temtrack/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the annotation service API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := loggerFromViper()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			dbCfg := dbConfigFromViper()
			gdb, err := db.Open(ctx, dbCfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if dbCfg.AutoMigrate {
				if err := db.AutoMigrate(gdb); err != nil {
					return fmt.Errorf("migrate database: %w", err)
				}
			}

			sink := auditSinkFromViper(log)
			defer sink.Close()

			srv := server.New(server.NewStore(gdb), sink, log)
			addr := viper.GetString("server.addr")
			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server_listening", "addr", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				log.Info("server_shutting_down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpSrv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
			}
			return nil
		},
	}
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := loggerFromViper()
			gdb, err := db.Open(cmd.Context(), dbConfigFromViper())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if err := db.AutoMigrate(gdb); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			log.Info("migration_complete")
			return nil
		},
	}
}
