package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"shopify-tenant-sync/internal/auth"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// admintoken prints an operator bearer token for POST /api/sync across all shops
func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using process environment")
	}

	operator := flag.String("operator", "", "name recorded as the token subject")
	ttl := flag.Duration("ttl", 15*time.Minute, "token lifetime")
	flag.Parse()

	issuer, err := auth.NewIssuer(os.Getenv("JWT_SECRET"), os.Getenv("JWT_ISSUER"), *ttl)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize token issuer")
	}
	token, expires, err := issuer.IssueAdmin(*operator)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to issue admin token")
	}

	logger.Info().Str("operator", *operator).Time("expiresAt", expires).Msg("Admin token issued")
	fmt.Println(token)
}
