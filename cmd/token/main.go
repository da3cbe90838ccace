// Command token prints a shopper token signed with JWT_SECRET, for local use
// against the receipts API.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"Checkout/internal/auth"
	"Checkout/internal/config"
	"Checkout/pkg/kit"
)

func main() {
	log := kit.NewLogger("token", "info")
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config failed", zap.Error(err))
	}

	shopper := os.Getenv("SHOPPER_ID")
	if shopper == "" {
		log.Fatal("SHOPPER_ID is required")
	}

	tok, err := auth.NewTokenMaker(cfg.JWTSecret).New(shopper, cfg.TokenTTL)
	if err != nil {
		log.Fatal("sign token failed", zap.Error(err))
	}
	fmt.Println(tok)
}
