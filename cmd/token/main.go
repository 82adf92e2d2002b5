package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nimasrn/lead-crm/internal/auth"
	"github.com/nimasrn/lead-crm/internal/config"
	"github.com/nimasrn/lead-crm/pkg/logger"
)

// token prints a signed bearer token, e.g.
//
//	token --env=.env --sub=maria --role=sales
func main() {
	envPath := flag.String("env", "", "dotenv file to load")
	subject := flag.String("sub", "", "token subject")
	role := flag.String("role", auth.RoleSales, "role claim (admin or sales)")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to AUTH_TOKEN_TTL")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Get()

	v, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if err != nil {
		logger.Error("failed creating token issuer", "error", err)
		os.Exit(1)
	}
	lifetime := cfg.AuthTokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	token, err := v.Issue(*subject, *role, lifetime)
	if err != nil {
		logger.Error("failed issuing token", "error", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
