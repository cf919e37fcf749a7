// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/iptranscoder/internal/config"
	"github.com/ManuGH/iptranscoder/internal/persistence/sqlite"
	"github.com/ManuGH/iptranscoder/internal/store"
)

func runStoreCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printStoreUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "verify":
		return runStoreVerify(args[1:])
	case "import":
		return runStoreImport(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printStoreUsage(os.Stderr)
		return 2
	}
}

func printStoreUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  transcoderd store verify [--config PATH] [--mode quick|full]")
	_, _ = fmt.Fprintln(w, "  transcoderd store import [--config PATH] -f seed.yaml")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Subcommands:")
	_, _ = fmt.Fprintln(w, "  verify    Check store integrity")
	_, _ = fmt.Fprintln(w, "  import    Save channels and schedules from a seed file")
}

func runStoreVerify(args []string) int {
	fs := flag.NewFlagSet("transcoderd store verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := configFlag(fs)
	mode := fs.String("mode", "quick", "verification mode: quick or full")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	m := strings.ToLower(strings.TrimSpace(*mode))
	if m != "quick" && m != "full" {
		fmt.Fprintf(os.Stderr, "Error: invalid mode %q. Use 'quick' or 'full'.\n", *mode)
		return 2
	}

	ctx := context.Background()
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: store verify: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stderr, "Verifying %s store at %s (mode: %s)...\n", cfg.Store.Backend, cfg.Store.Path, m)
	problems, err := verifyStore(ctx, cfg, m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Verification interrupted by system error: %v\n", err)
		return 1
	}
	if len(problems) > 0 {
		fmt.Fprintln(os.Stderr, "CORRUPTION DETECTED")
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "  - %s\n", p)
		}
		return 1
	}
	fmt.Println("Integrity verified: ok")
	return 0
}

func runStoreImport(args []string) int {
	fs := flag.NewFlagSet("transcoderd store import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := configFlag(fs)
	file := fs.String("f", "", "seed file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: -f is required")
		return 2
	}

	seed, err := readSeed(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	_, st, ok := openStore(ctx, "store import", *configPath)
	if !ok {
		return 1
	}
	defer func() { _ = st.Close() }()

	counts, err := seed.Apply(ctx, st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Imported %d channels, %d time-shift profiles, %d schedules, %d recurring schedules\n",
		counts.Channels, counts.TimeShiftProfiles, counts.Schedules, counts.RecurringSchedules)
	return 0
}

// verifyStore checks the configured store. SQLite files are opened
// read-only so a damaged database is never migrated.
func verifyStore(ctx context.Context, cfg config.Config, mode string) ([]string, error) {
	if cfg.Store.Backend == store.BackendSQLite {
		if _, err := os.Stat(cfg.Store.Path); err != nil {
			return nil, err
		}
		return sqlite.VerifyFile(ctx, cfg.Store.Path, mode)
	}
	st, err := store.Open(ctx, cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()
	return st.Verify(ctx, mode)
}
