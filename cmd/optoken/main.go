package main

import (
	"flag"
	"fmt"
	"log"
	"package-tracking-service/internal/auth"
	"package-tracking-service/internal/config"
)

// optoken mints an operator token for local use:
//
//	go run ./cmd/optoken -admin admin-1
func main() {
	cfg, _, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	adminID := flag.String("admin", "admin-1", "operator id carried as the token subject")
	ttl := flag.Duration("ttl", cfg.TokenTTL, "token lifetime")
	flag.Parse()

	tokens, err := auth.NewTokens(cfg.JWTSecret, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	tok, err := tokens.Issue(*adminID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(tok)
}
