package main

import (
	"context"
	"log"

	"github.com/planvista/planvista-backend/config"
	"github.com/planvista/planvista-backend/internal/auth"
	"github.com/planvista/planvista-backend/internal/bootstrap"
	"github.com/planvista/planvista-backend/internal/maintenance"
	"github.com/planvista/planvista-backend/internal/projects/repository"
	renderclient "github.com/planvista/planvista-backend/internal/render"
	renderrepo "github.com/planvista/planvista-backend/internal/render/repository"
	"github.com/planvista/planvista-backend/internal/storage/blob"
	"github.com/planvista/planvista-backend/internal/storage/kv"
)

const serviceName = "planvista-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := config.NewLogger(cfg.App)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		logger.WithError(err).Fatal("redis connect failed")
	}
	defer rdb.Close()

	db, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("db connect failed")
	}
	if db != nil {
		defer db.Close()
		if err := renderrepo.NewEventRepository(db).EnsureSchema(ctx); err != nil {
			logger.WithError(err).Fatal("db schema failed")
		}
	} else {
		logger.Warn("DB_DSN not set, render audit trail disabled")
	}

	blobStore, err := blob.NewS3Store(ctx, blob.Options{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		logger.WithError(err).Fatal("blob store init failed")
	}

	authClient, err := auth.InitializeFirebase(&cfg.Firebase)
	if err != nil {
		logger.WithError(err).Fatal("firebase init failed")
	}
	if authClient == nil {
		logger.Warn("FIREBASE_CREDENTIALS_PATH not set, using header identity (development only)")
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:  serviceName,
		Version:      cfg.App.Version,
		AllowOrigins: cfg.Server.AllowOrigins,
		Redis:        rdb,
		DB:           db,
		Blob:         blobStore,
		AuthClient:   authClient,
		RenderClient: renderclient.NewClient(cfg.Gemini.BaseURL, cfg.Gemini.Model, cfg.Gemini.APIKey),
		Logger:       logger,
	})

	sweeper := maintenance.NewSweeper(
		repository.NewProjectRepository(kv.NewStore(rdb), blobStore, logger),
		logger,
	)
	sweeper.Start()
	defer sweeper.Stop()

	logger.WithField("port", cfg.Server.Port).Info("listening")
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
