package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpAdapter "github.com/lucasmbraga/taxflow/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the workflow engine in server mode, exposing the turn API and session management over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}

		engine, logger, cleanup, err := buildEngine(cfg)
		if err != nil {
			fmt.Printf("Error initializing engine: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		defer engine.Flush()

		handler := httpAdapter.NewHandler(engine, httpAdapter.WithLogger(logger))

		srv := &http.Server{
			Addr:    cfg.Listen,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("taxflow server listening",
				"addr", srv.Addr,
				"store", cfg.Store.Backend,
				"gateway", cfg.Gateway.Mode,
			)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("server close failed", "err", err)
				}
			}
			logger.Info("taxflow server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address, e.g. :8080 (overrides config)")
}
