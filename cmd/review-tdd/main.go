package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aqureshiest/parse-pdf/internal/models"
	"github.com/aqureshiest/parse-pdf/internal/services"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
}

func main() {
	_ = godotenv.Load()

	parserURL := flag.String("url", "", "parse endpoint (defaults to PARSER_URL or "+services.DefaultParserURL+")")
	concurrency := flag.Int("concurrency", 2, "maximum number of documents reviewed at once")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: review-tdd [-url URL] [-concurrency N] file.pdf...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	reviewer, err := services.NewReviewer(*parserURL)
	if err != nil {
		slog.Error("Critical error during initialization", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reviews := make([]*models.ReviewResponse, len(paths))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(*concurrency, 1))
	for i, path := range paths {
		eg.Go(func() error {
			resp, err := reviewer.Process(gctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reviews[i] = resp
			return nil
		})
	}
	waitErr := eg.Wait()

	for _, r := range reviews {
		if r == nil {
			continue
		}
		fmt.Printf("# Review: %s\n\n%s\n\n%s\n\n", r.Path, strings.TrimSpace(r.Review), strings.Repeat("-", 72))
	}

	if waitErr != nil {
		slog.Error("Review failed", "error", waitErr)
		os.Exit(1)
	}
}
