package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/babel/internal/batch"
	"horse.fit/babel/internal/cli"
	"horse.fit/babel/internal/config"
	"horse.fit/babel/internal/language"
	"horse.fit/babel/internal/logging"
	"horse.fit/babel/internal/provider"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	target := fs.String("target", "", "Target language (ISO 639-1, for example: en, es)")
	source := fs.String("source", provider.SourceAuto, "Source language, or auto to detect")
	format := fs.String("format", provider.FormatText, "Input format: text or html")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "translate requires at least one text argument")
		return 2
	}

	targetLang := language.NormalizeCode(*target)
	if targetLang == "" {
		fmt.Fprintln(os.Stderr, "--target is required and must be a valid language code")
		return 2
	}
	sourceLang := strings.ToLower(strings.TrimSpace(*source))
	if sourceLang == "" {
		sourceLang = provider.SourceAuto
	}
	if *format != provider.FormatText && *format != provider.FormatHTML {
		fmt.Fprintln(os.Stderr, "--format must be text or html")
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

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to wire services: %v\n", err)
		return 1
	}
	defer svc.close()

	units := make([]provider.Unit, 0, fs.NArg())
	for _, text := range fs.Args() {
		units = append(units, provider.Unit{
			Text:       text,
			SourceLang: sourceLang,
			TargetLang: targetLang,
			Format:     *format,
		})
	}

	result, err := svc.coordinator.Translate(ctx, batch.Request{Units: units})
	if err != nil {
		var partial *batch.PartialError
		var total *batch.TotalError
		switch {
		case errors.As(err, &partial):
			for _, unit := range partial.Results {
				fmt.Printf("%d\t%s\n", unit.Index, unit.Text)
			}
			for _, failure := range partial.Failures {
				fmt.Fprintf(os.Stderr, "unit %d failed: %s\n", failure.Index, failure.Reason)
			}
		case errors.As(err, &total):
			for _, failure := range total.Failures {
				fmt.Fprintf(os.Stderr, "unit %d failed: %s\n", failure.Index, failure.Reason)
			}
		default:
			fmt.Fprintf(os.Stderr, "Translate failed: %v\n", err)
		}
		return 1
	}

	for _, unit := range result.Results {
		fmt.Printf("%d\t%s\n", unit.Index, unit.Text)
	}
	return 0
}
