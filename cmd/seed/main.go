package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"candlux/internal/auth"
	"candlux/internal/cache"
	"candlux/internal/config"
	"candlux/internal/db"
	"candlux/internal/logger"
	"candlux/internal/service"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	entries, err := readSeedFile(cfg.SeedFile)
	if err != nil {
		zl.Fatal("read seed file", zap.String("path", cfg.SeedFile), zap.Error(err))
	}
	zl.Info("loaded seed file", zap.String("path", cfg.SeedFile), zap.Int("accounts", len(entries)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	accounts, closeStore, err := db.OpenAccountStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("account store init", zap.Error(err))
	}
	defer func() { _ = closeStore(context.Background()) }()

	// cached admin views of updated accounts are invalidated through redis
	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	svc := service.NewAccountService(accounts, cacheClient, auth.NewPasswordHasher(cfg.PasswordPepper))
	created, updated, err := svc.SeedAccounts(ctx, entries)
	if err != nil {
		zl.Error("seed failed", zap.Int("created", created), zap.Int("updated", updated), zap.Error(err))
		os.Exit(1)
	}

	fmt.Printf("Seed completed: %d created, %d updated\n", created, updated)
}

func readSeedFile(path string) ([]service.SeedAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []service.SeedAccount
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return entries, nil
}
