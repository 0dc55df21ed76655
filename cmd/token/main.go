// Command token mints bearer tokens for local development and smoke tests.
// It signs with the same JWT_SECRET and JWT_ISSUER the server reads.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"cabdispatch/internal/auth"
	"cabdispatch/internal/config"
	"cabdispatch/internal/domain"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := config.Load()

	var subject, roles string
	flagSet := pflag.NewFlagSet("token", pflag.ContinueOnError)
	flagSet.StringVar(&subject, "sub", "", "actor ID to put in the token subject")
	flagSet.StringVar(&roles, "roles", string(domain.RolePassenger), "comma separated roles: PASSENGER, DRIVER, ADMIN")
	flagSet.DurationVar(&cfg.Auth.TokenTTL, "ttl", cfg.Auth.TokenTTL, "token lifetime")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if subject == "" {
		return fmt.Errorf("--sub is required")
	}

	parsed, err := domain.ParseRoles(strings.Split(roles, ","))
	if err != nil {
		return err
	}

	resolver, err := auth.NewResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	token, err := resolver.Issue(subject, parsed...)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
