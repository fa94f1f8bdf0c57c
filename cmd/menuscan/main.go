// cmd/menuscan/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"menuscan/internal/common/auth"
	commonaws "menuscan/internal/common/aws"
	"menuscan/internal/common/config"
	"menuscan/internal/common/database"
	"menuscan/internal/common/logger"
	"menuscan/internal/draft"
	"menuscan/internal/extraction"
	"menuscan/internal/images"
	"menuscan/internal/pipeline"
	"menuscan/internal/publish"
)

func main() {
	imagePath := flag.String("image", "", "path to a menu photo to ingest")
	restaurant := flag.String("restaurant", "", "restaurant slug to publish under")
	menuName := flag.String("name", "Imported Menu", "draft menu name")
	language := flag.String("language", "en", "draft default language")
	autoPublish := flag.Bool("publish", false, "create and publish the draft after ingestion")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting menuscan",
		zap.String("environment", cfg.App.Environment),
		zap.String("api", cfg.API.BaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address, zapLog)
	}

	var tokens auth.TokenProvider
	if token := os.Getenv("SESSION_TOKEN"); token != "" {
		tokens = auth.StaticProvider{Value: token}
	} else {
		tokens = auth.NewOAuthProvider(cfg.Auth.TokenURL, cfg.Auth.ClientID, cfg.Auth.ClientSecret)
	}

	var store *draft.Store
	if cfg.Redis.Address != "" {
		redisClient, err := database.NewRedis(cfg.Redis)
		if err != nil {
			zapLog.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()
		if err := redisClient.Ping(ctx); err != nil {
			zapLog.Warn("redis unavailable, autosave disabled", zap.Error(err))
		} else {
			store = draft.NewStore(redisClient.Client, time.Duration(cfg.Redis.DraftTTL)*time.Second)
		}
	}

	var uploader *images.Uploader
	if cfg.Images.Bucket != "" {
		s3Client, err := commonaws.NewS3Client(ctx, cfg.Images)
		if err != nil {
			zapLog.Fatal("failed to create s3 client", zap.Error(err))
		}
		uploader = images.NewUploader(s3Client, cfg.Images.Bucket, cfg.Images.PublicBaseURL, cfg.Images.MaxUploadBytes, log)
	}

	extractionClient := extraction.NewClient(cfg.API.BaseURL, tokens, log)
	poller := extraction.NewPoller(extractionClient.Status, extraction.PollerOptions{
		Interval:            time.Duration(cfg.Extraction.PollInterval) * time.Millisecond,
		MaxTransportRetries: cfg.Extraction.MaxTransportRetries,
	}, log)

	session := pipeline.NewSession(pipeline.Dependencies{
		Extraction:   extractionClient,
		Poller:       poller,
		Search:       images.NewSearchClient(cfg.API.BaseURL, tokens, log),
		Uploader:     uploader,
		Orchestrator: publish.NewOrchestrator(cfg.API.BaseURL, tokens, log),
		Store:        store,
		SearchLimit:  cfg.Images.SearchLimit,
		Logger:       log,
	}, *menuName, *language)
	defer session.Close()

	session.SetProgressObserver(func(job extraction.Job) {
		zapLog.Info("extraction progress",
			zap.String("jobId", job.ID),
			zap.String("status", string(job.Status)),
			zap.Int("progress", job.Progress),
		)
	})

	if *imagePath == "" {
		zapLog.Fatal("no image supplied; pass -image <path>")
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		zapLog.Fatal("failed to read image", zap.Error(err))
	}
	contentType := mime.TypeByExtension(filepath.Ext(*imagePath))

	if err := session.Ingest(ctx, extraction.Upload{
		Filename:    filepath.Base(*imagePath),
		ContentType: contentType,
		Data:        data,
	}); err != nil {
		zapLog.Fatal("ingestion failed", zap.Error(err))
	}

	menu := session.Draft()
	items := 0
	for _, s := range menu.Sections {
		items += len(s.Items)
	}
	zapLog.Info("draft ready",
		zap.String("sessionId", session.ID),
		zap.Int("sections", len(menu.Sections)),
		zap.Int("items", items),
	)

	if *autoPublish {
		if *restaurant == "" {
			zapLog.Fatal("publish requested without -restaurant slug")
		}
		result := session.Publish(ctx, *restaurant)
		switch result.Outcome {
		case publish.OutcomePublished:
			zapLog.Info("menu published",
				zap.String("menuId", result.Menu.ID),
				zap.String("slug", result.Menu.Slug),
			)
		case publish.OutcomeCreatedUnpublished:
			zapLog.Warn("menu created but not yet published; retry publish with the menu id",
				zap.String("menuId", result.Menu.ID),
				zap.Error(result.Err),
			)
		default:
			zapLog.Fatal("publish failed", zap.Error(result.Err))
		}
	}
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("serving metrics", zap.String("address", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}
