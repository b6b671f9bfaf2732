package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Brownie44l1/fitness-api/internal/config"
	"github.com/Brownie44l1/fitness-api/internal/fitness"
	"github.com/Brownie44l1/fitness-api/internal/handlers"
	"github.com/Brownie44l1/fitness-api/internal/metrics"
	"github.com/Brownie44l1/fitness-api/internal/model"
	"github.com/Brownie44l1/fitness-api/internal/raster"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "go.uber.org/automaxprocs"
)

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

// projectPath resolves relative paths against the project root so the
// server can also be started from cmd/server.
func projectPath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// checkDimension compares the embedding size declared in the model metadata
// with the length of the target vector the model actually produced.
func checkDimension(declared, actual int) error {
	if declared != actual {
		return fmt.Errorf("metadata declares %d features, model returned %d", declared, actual)
	}
	return nil
}

func main() {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		fatal("Invalid configuration", "err", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	root, err := os.Getwd()
	if err != nil {
		fatal("Failed to get working directory", "err", err)
	}
	if filepath.Base(root) == "server" {
		root = filepath.Join(root, "../..")
	}

	modelPath := projectPath(root, cfg.ModelPath)
	targetPath := projectPath(root, cfg.TargetPath)

	logger.Info("Loading model", "model", modelPath)
	extractor, err := model.NewExtractor(modelPath, projectPath(root, cfg.MetadataPath), cfg.LibraryPath)
	if err != nil {
		fatal("Failed to initialize feature extractor", "err", err)
	}
	defer extractor.Close()

	target, err := raster.LoadFile(targetPath, raster.Width, raster.Height)
	if err != nil {
		extractor.Close()
		fatal("Failed to load target image", "err", err)
	}

	scorer, err := fitness.NewScorer(extractor, target)
	if err != nil {
		extractor.Close()
		fatal("Failed to compute target features", "err", err)
	}
	if err := checkDimension(extractor.Dimension(), scorer.Dimension()); err != nil {
		extractor.Close()
		fatal("Model metadata does not match extractor output", "err", err)
	}
	logger.Info("Target features cached", "target", targetPath, "dimension", scorer.Dimension())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	handler := handlers.NewHandler(scorer, m, logger, targetPath, cfg.MaxBodyBytes)
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handlers.NewRouter(handler, m, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Server starting", "addr", srv.Addr,
			"endpoints", []string{"GET /health", "POST /evaluate", "GET /metrics"})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "err", err)
	}
}
