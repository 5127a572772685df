package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fintrack/fintrack-api/internal/config"
	"github.com/fintrack/fintrack-api/internal/infrastructure/dynamo"
	"github.com/fintrack/fintrack-api/internal/infrastructure/gemini"
	jwtinfra "github.com/fintrack/fintrack-api/internal/infrastructure/jwt"
	s3infra "github.com/fintrack/fintrack-api/internal/infrastructure/s3"
	"github.com/fintrack/fintrack-api/internal/infrastructure/sns"
	"github.com/fintrack/fintrack-api/internal/infrastructure/waba"
	transporthttp "github.com/fintrack/fintrack-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if the key is missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// WhatsApp gateway (optional — replies are skipped without it).
	var wabaSender waba.Sender
	if cfg.WabaWorkerURL != "" {
		wabaSender = waba.NewSender(cfg.WabaWorkerURL)
	} else {
		log.Println("WARN: WABA_WORKER_URL not set, WhatsApp notifications disabled")
	}

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if cfg.SMSEnabled {
		if sender, err := sns.NewSender(cfg); err == nil {
			smsSender = sender
		} else {
			log.Printf("WARN: SNS sender not available: %v", err)
		}
	}

	// Gemini extractor (optional — inbound messages are not parsed without it).
	var extractor *gemini.Extractor
	if cfg.GeminiAPIKey != "" {
		if e, err := gemini.NewExtractor(context.Background(), cfg); err == nil {
			extractor = e
		} else {
			log.Printf("WARN: Gemini extractor not available: %v", err)
		}
	} else {
		log.Println("WARN: GEMINI_API_KEY not set, transaction extraction disabled")
	}

	deps := &transporthttp.Deps{
		UserRepo:        dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SyncCodeRepo:    dynamo.NewSyncCodeRepo(dynamoClient, cfg.DynamoTables.SyncCodes),
		DirectoryRepo:   dynamo.NewDirectoryRepo(dynamoClient, cfg.DynamoTables.Directory),
		TransactionRepo: dynamo.NewTransactionRepo(dynamoClient, cfg.DynamoTables.Transactions),
		EventRepo:       dynamo.NewEventRepo(dynamoClient, cfg.DynamoTables.Events),
		FileRepo:        dynamo.NewFileRepo(dynamoClient, cfg.DynamoTables.Files),
		S3Store:         s3Store,
		WabaSender:      wabaSender,
		SMSSender:       smsSender,
		Extractor:       extractor,
		JWTProvider:     jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
