package main

import (
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"tribu-ledger/internal/adapters/auth/tribuauth"
	"tribu-ledger/internal/config"
	"tribu-ledger/internal/platform/logger"
	"tribu-ledger/internal/ports/auth"
	"tribu-ledger/internal/router"
)

func main() {
	// .env es opcional; en producción todo viene del entorno
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	appLog := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    "tribu-ledger",
	})

	// Sin API configurado, el middleware queda en modo dev
	// (X-Debug-User-ID).
	var verifier auth.AuthVerifier
	if cfg.APIBaseURL != "" {
		client, err := tribuauth.NewClient(tribuauth.Config{
			BaseURL: cfg.APIBaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.APITimeout,
		})
		if err != nil {
			log.Fatalf("auth client: %v", err)
		}
		verifier = tribuauth.NewVerifier(client)
	}

	handler, err := router.NewRouter(router.Options{
		Config:       cfg,
		Log:          appLog,
		AuthVerifier: verifier,
	})
	if err != nil {
		log.Fatalf("router: %v", err)
	}

	addr := ":" + cfg.Port

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	appLog.Info("starting server", map[string]any{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
