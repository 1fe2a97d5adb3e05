package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/babel/internal/cli"
	"horse.fit/babel/internal/config"
	"horse.fit/babel/internal/db"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "health does not accept positional arguments")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	fmt.Printf("config: ok (environment=%s)\n", cfg.Environment)
	fmt.Printf("providers: %s\n", cfg.ProviderOrder)

	if cfg.DatabaseURL == "" {
		fmt.Printf("credential store: static (%d keys)\n", len(cfg.APIKeyList()))
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "credential store: unreachable: %v\n", err)
		return 1
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "credential store: ping failed: %v\n", err)
		return 1
	}

	keys, err := pool.CountAPIKeys(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "credential store: query failed: %v\n", err)
		return 1
	}

	fmt.Printf("credential store: postgres (%d active keys)\n", keys)
	return 0
}
