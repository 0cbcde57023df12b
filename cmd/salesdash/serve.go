package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"salesdash/db"
	qhttp "salesdash/http"
	"salesdash/monitoring"
	"salesdash/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard web server",
	Long:  `Serve the dashboard pages, the JSON API and the live websocket feed until interrupted.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := setup()
	if err != nil {
		return err
	}
	logger := c.logger
	defer logger.Sync()

	cfg := c.cfg
	if servePort > 0 {
		cfg.Http.Port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. History database
	var history pipeline.History
	var reader qhttp.HistoryReader
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		history, reader = store, store
		logger.Info("history database ready", zap.String("path", cfg.Database.Path))
	}

	// 2. Live feed
	hub := monitoring.NewHub(logger, cfg.Http.AllowedOrigins)
	go hub.Run(ctx)

	// 3. Prediction and evaluation
	service, err := c.newService(history, hub)
	if err != nil {
		return err
	}
	evaluation := newEvaluationStore(c, hub)
	if cfg.Evaluation.Watch {
		go func() {
			if err := evaluation.Watch(ctx); err != nil {
				logger.Warn("evaluation watcher stopped", zap.Error(err))
			}
		}()
	}

	// 4. HTTP server
	handler, err := qhttp.NewHandler(qhttp.Dependencies{
		Service:    service,
		Evaluation: evaluation,
		History:    reader,
		Metrics:    c.metrics,
		Hub:        hub,
		Logger:     logger,
		ModelType:  modelLabel(cfg.Model.Type),
	})
	if err != nil {
		return err
	}
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxUploadBytes: cfg.Http.MaxUploadBytes,
	}, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	successColor.Fprintf(os.Stderr, "Dashboard listening on http://localhost%s\n", server.Addr())

	// 5. Graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	if err := server.Stop(); err != nil {
		logger.Warn("server stop", zap.Error(err))
	}
	return nil
}

func modelLabel(modelType string) string {
	if modelType == "" {
		return "auto"
	}
	return modelType
}
