package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/binder/internal/api"
	"github.com/dgallion1/binder/internal/pipeline"
)

var serveBuildOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the master PDF and accept rebuild requests over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		builder := pipeline.NewBuilder(pipeline.OptionsFromConfig(cfg), log)
		orch := pipeline.NewOrchestrator(builder.Run, cfg.JobTTL, 8, log)
		orch.Start(ctx)

		if serveBuildOnStart {
			if _, err := orch.Submit(); err != nil {
				log.Warn("initial build not queued", "error", err)
			}
		}

		srv := api.NewServer(orch, log, cfg)
		httpServer := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      srv,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown.
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-sigCh:
			case <-ctx.Done():
			}
			log.Info("shutting down...")

			orch.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		log.Info("starting binder", "port", cfg.Port, "manifest", cfg.ManifestPath, "output", cfg.OutputPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveBuildOnStart, "build-on-start", false, "Queue a build as soon as the server starts")
	rootCmd.AddCommand(serveCmd)
}
