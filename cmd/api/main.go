package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"usint/api/internal/activelist"
	"usint/api/internal/app"
	"usint/api/internal/config"
	"usint/api/internal/email"
	"usint/api/internal/obscat"
	"usint/api/internal/ocat"
	"usint/api/internal/search"
	"usint/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	obscatDB, err := store.Open(ctx, cfg.ObscatURL)
	if err != nil {
		log.Fatalf("obscat connection failed: %v", err)
	}
	defer obscatDB.Close()

	dataStore := store.NewPostgresStore(db)
	source := obscat.New(obscatDB)
	catalog := ocat.NewCatalog()

	var fetcher activelist.SnapshotFetcher
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		fetcher, err = activelist.NewObjectFetcher(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.ActiveListObject, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("object store connection failed: %v", err)
		}
	} else {
		fetcher = activelist.NewFileFetcher(cfg.ActiveListFile)
	}
	activeList, err := activelist.New(cfg.RedisURL, fetcher)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer activeList.Close()

	pgRevisions := search.NewPgRevisions(dataStore)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgRevisions)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	mail := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !mail.IsConfigured() {
		log.Printf("SMTP not configured, notifications disabled")
	}

	service := app.New(cfg, catalog, dataStore, source, activeList, mail, searchService)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: catalog sync error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, cfg.RemoteUserHeader)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Usint API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
