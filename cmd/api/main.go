package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/PlunderAcademy/plunderacademy-achievements/config"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/api"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/catalog"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/dataloader"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/onchain"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/quiz"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/router"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/secret"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/store"
	"github.com/PlunderAcademy/plunderacademy-achievements/pkgs/voucher"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	settings := config.SettingsObj

	ctx := context.Background()

	// Redis backs completion persistence and the atomic pass claim
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", settings.RedisHost, settings.RedisPort),
		Password: settings.RedisPassword,
		DB:       settings.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}

	completionStore, err := store.NewRedisStore(redisClient, "achievements", 10000)
	if err != nil {
		log.WithError(err).Fatal("Failed to create completion store")
	}

	signer, err := voucher.NewSigner(
		settings.IssuerPrivateKey,
		settings.VoucherDomainName,
		settings.VoucherDomainVersion,
		settings.RegistryChainID,
		settings.RegistryContract,
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to create voucher signer")
	}
	log.WithField("issuer", signer.IssuerAddress().Hex()).Info("Voucher signer ready")

	fetchClient := &http.Client{Timeout: settings.FetchTimeout}
	clock := dataloader.SystemClock{}

	quizValidator := quiz.NewValidator(
		quiz.NewHTTPBankProvider(settings.QuizBankURL, settings.QuizCacheTTL, fetchClient, clock))
	secretValidator := secret.NewValidator(
		secret.NewHTTPTableProvider(settings.SecretTableURL, settings.SecretCacheTTL, fetchClient, clock), clock)
	chainVerifier := onchain.NewVerifier(settings.RPCCallTimeout)
	defer chainVerifier.Close()

	registry := catalog.NewRegistry()

	pipeline := router.New(router.Options{
		Catalog:          registry,
		Store:            completionStore,
		Signer:           signer,
		Quiz:             quizValidator,
		Secret:           secretValidator,
		Chain:            chainVerifier,
		RPCEndpoints:     settings.RPCEndpoints,
		DefaultChainID:   settings.DefaultChainID,
		RegistryContract: settings.RegistryContract,
		RegistryChainID:  settings.RegistryChainID,
	})

	apiServer := api.NewServer(pipeline, registry, redisClient)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", settings.APIHost, settings.APIPort),
		Handler: apiServer.Router(),
	}

	if settings.MetricsEnabled {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", promhttp.Handler())

			log.WithField("port", settings.MetricsPort).Info("Starting metrics server")
			if err := http.ListenAndServe(fmt.Sprintf(":%d", settings.MetricsPort), metricsMux); err != nil {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("Starting achievement API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down achievement service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to gracefully shutdown HTTP server")
	}

	if err := redisClient.Close(); err != nil {
		log.WithError(err).Error("Failed to close Redis client")
	}

	log.Info("Achievement service stopped")
}
