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

	"github.com/redis/go-redis/v9"

	"gudangkita/backend/internal/config"
	"gudangkita/backend/internal/httpapi"
	"gudangkita/backend/internal/locking"
	"gudangkita/backend/internal/recordstore"
	"gudangkita/backend/internal/service"
	"gudangkita/backend/internal/store"
	"gudangkita/backend/internal/store/memory"
	recstore "gudangkita/backend/internal/store/record"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 1)

	if cfg.RecordStoreURL != "" {
		client := recordstore.New(cfg.RecordStoreURL, cfg.RecordStoreToken)
		repo = recstore.New(client)
		log.Println("repository: record store")
	} else {
		repo = memory.NewSeeded()
		log.Println("repository: in-memory")
	}

	var locks locking.Locker = locking.NewKeyMutex()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis unavailable (%v) and REDIS_ADDR is set; refusing to start with in-process locks", err)
		}
		locks = locking.NewRedisLocker(rdb, time.Duration(cfg.LockTTLSeconds)*time.Second)
		closers = append(closers, rdb.Close)
		log.Println("locking: redis")
	} else {
		log.Println("locking: in-process")
	}

	svc := service.New(repo, locks)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("stock ledger backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.RecordStoreURL != "" && cfg.RecordStoreToken == "" {
		return fmt.Errorf("RECORDSTORE_TOKEN must be set when RECORDSTORE_URL is configured")
	}
	return nil
}
