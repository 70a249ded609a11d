package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/imgpress/imgpress/internal/api"
	"github.com/imgpress/imgpress/internal/compressor"
	"github.com/imgpress/imgpress/internal/config"
	"github.com/imgpress/imgpress/internal/logging"
	"github.com/imgpress/imgpress/internal/storage"
)

// CLI flags
var portFlag int

var rootCmd = &cobra.Command{
	Use:   "imgpress",
	Short: "Image compression and upload service",
	Long: `Imgpress accepts a single image upload over HTTP, re-encodes it as
lossy WebP at or below a target byte size, and publishes the result to a
hosted image-storage service (Cloudinary or S3-compatible).

Configuration is read from IMGPRESS_* environment variables; see the
project documentation for the full list.

Examples:
  imgpress
  imgpress --port 9090
  IMGPRESS_TARGET_BYTES=51200 imgpress`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	publisher, err := newPublisher(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage publisher")
	}
	log.Info().Str("backend", cfg.Storage).Msg("Storage publisher ready")

	uploadHandler := api.NewHandler(compressor.Config{
		TargetBytes:  cfg.TargetBytes,
		MinQuality:   cfg.MinQuality,
		StartQuality: cfg.StartQuality,
		Step:         cfg.QualityStep,
		MaxDimension: cfg.MaxDimension,
	}, publisher, cfg.Namespace, cfg.MaxUploadBytes)

	mux := http.NewServeMux()
	mux.Handle("/api/upload", uploadHandler)
	mux.HandleFunc("/api/health", api.HealthHandler)

	// Wrap with logging, CORS, and transparent gzip of JSON responses.
	handler := withLogging(withCORS(cfg.AllowedOrigins, gzhttp.GzipHandler(mux)))

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().
		Int("port", portFlag).
		Int("target_bytes", cfg.TargetBytes).
		Str("namespace", cfg.Namespace).
		Msg("Starting server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func newPublisher(cfg *config.Config) (storage.Publisher, error) {
	switch cfg.Storage {
	case config.StorageS3:
		return storage.NewS3Publisher(context.Background(), storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	default:
		return storage.NewCloudinaryPublisher(cfg.CloudinaryURL)
	}
}
