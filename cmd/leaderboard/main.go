package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/btcprophets/leaderboard/internal/config"
	"github.com/btcprophets/leaderboard/internal/logging"
	"github.com/btcprophets/leaderboard/internal/roi"
	"github.com/btcprophets/leaderboard/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so table and JSON output stay clean on stdout.
	logger, err := logging.New(os.Stderr, "prophets-leaderboard-cli", config.LogConfig{
		Level:  cfg.Log.Level,
		Format: "text",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	switch cmd := os.Args[1]; cmd {
	case "show":
		runShow(cfg, os.Args[2:])
	case "snapshot":
		runSnapshot(cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: leaderboard <command> [flags]

Commands:
  show -date YYYY-MM-DD [-json] [-db path]
                Compute and print the ROI leaderboard for a date
  snapshot -date YYYY-MM-DD -out path
                Copy the ledger rows for a date from PostgreSQL into SQLite`)
}

func openSource(ctx context.Context, cfg config.Config, dbPath string) (store.Source, func()) {
	opts := store.Options{
		DatabaseURL:      cfg.DatabaseURL,
		StatementTimeout: cfg.StatementTimeout,
		SQLitePath:       cfg.SQLitePath,
		RedisURL:         cfg.RedisURL,
		CacheTTL:         cfg.DirectoryCacheTTL,
	}
	if dbPath != "" {
		opts.DatabaseURL = ""
		opts.SQLitePath = dbPath
	}
	src, release, err := store.Open(ctx, opts, slog.Default())
	if err != nil {
		release()
		slog.Error("opening ledger source", "err", err)
		os.Exit(1)
	}
	return src, release
}

func runShow(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	date := fs.String("date", time.Now().UTC().Format(roi.DateLayout), "leaderboard date (YYYY-MM-DD)")
	asJSON := fs.Bool("json", false, "print the full report as JSON")
	dbPath := fs.String("db", "", "read a SQLite snapshot instead of the configured source")
	_ = fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	src, release := openSource(ctx, cfg, *dbPath)
	defer release()

	engine := roi.NewEngine(src, roi.KeywordPolicy{
		TitleTerms:       cfg.TitleTerms,
		DescriptionTerms: cfg.DescriptionTerms,
	}, slog.Default())

	report, err := engine.Compute(ctx, *date)
	if err != nil {
		slog.Error("computing leaderboard", "date", *date, "err", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			slog.Error("encoding report", "err", err)
			os.Exit(1)
		}
		return
	}

	if len(report.Entries) == 0 {
		fmt.Printf("No leaderboard entries for %s (%d qualifying markets).\n", report.Date, len(report.MarketIDs))
		return
	}

	fmt.Printf("%-4s %-44s %-20s %14s %14s %12s\n", "#", "Wallet", "Name", "Volume", "Profit", "ROI")
	fmt.Println("------------------------------------------------------------------------------------------------------------------")
	for i, e := range report.Entries {
		name := "-"
		if e.DisplayName != nil {
			name = *e.DisplayName
		}
		fmt.Printf("%-4d %-44s %-20s %14s %14s %12s\n",
			i+1,
			e.WalletAddress,
			truncate(name, 20),
			e.TotalBuyVolumeUSD.StringFixed(2),
			e.TotalProfitUSD.StringFixed(2),
			e.ROI.StringFixed(4),
		)
	}
	fmt.Println("------------------------------------------------------------------------------------------------------------------")
	fmt.Printf("%d markets, %d amm / %d taker / %d maker rows, %d excluded\n",
		len(report.MarketIDs), report.AMMRows, report.TakerRows, report.MakerRows, report.Excluded())
}

func runSnapshot(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	date := fs.String("date", "", "ledger date (YYYY-MM-DD)")
	out := fs.String("out", "", "SQLite file to write")
	_ = fs.Parse(args)

	if *out == "" {
		fmt.Fprintln(os.Stderr, "snapshot: -out is required")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "snapshot: DATABASE_URL is required")
		os.Exit(1)
	}
	day, err := roi.ParseDate(*date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapshot: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	src, release := openSource(ctx, cfg, "")
	defer release()

	dst, err := store.OpenSQLite(*out)
	if err != nil {
		slog.Error("opening snapshot", "path", *out, "err", err)
		os.Exit(1)
	}
	defer dst.Close()

	stats, err := store.Snapshot(ctx, src, dst, day)
	if err != nil {
		slog.Error("snapshot failed", "date", *date, "err", err)
		os.Exit(1)
	}
	fmt.Printf("Snapshot of %s written to %s: %d markets, %d amm trades, %d fills, %d profiles.\n",
		day.Format(roi.DateLayout), *out, stats.Markets, stats.AMMTrades, stats.Fills, stats.Profiles)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
