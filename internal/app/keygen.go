package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/babel/internal/auth"
	"horse.fit/babel/internal/cli"
	"horse.fit/babel/internal/config"
	"horse.fit/babel/internal/credstore"
	"horse.fit/babel/internal/db"
)

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	subject := fs.String("subject", "", "Caller identity recorded with the key")
	admin := fs.Bool("admin", false, "Also print the bcrypt hash for ADMIN_KEY_BCRYPT_HASH")
	store := fs.Bool("store", false, "Insert the key into the Postgres credential store (requires DATABASE_URL)")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "keygen does not accept positional arguments")
		return 2
	}

	rawKey, err := auth.MintKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to mint key: %v\n", err)
		return 1
	}
	fingerprint := credstore.HashKey(rawKey)

	fmt.Printf("api_key: %s\n", rawKey)
	fmt.Printf("fingerprint: %s\n", fingerprint)

	if *admin {
		hash, err := auth.HashAdminKey(rawKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to hash key: %v\n", err)
			return 1
		}
		fmt.Printf("admin_key_bcrypt_hash: %s\n", hash)
	}

	if !*store {
		return 0
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
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "--store requires DATABASE_URL; add the key to API_KEYS instead")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	keySubject := *subject
	if keySubject == "" {
		keySubject = "key-" + fingerprint[:12]
	}

	row, err := pool.InsertAPIKey(ctx, fingerprint, keySubject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to store key: %v\n", err)
		return 1
	}

	fmt.Printf("stored: key_id=%d subject=%s\n", row.KeyID, row.Subject)
	return 0
}
