package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/go-faster/errors"

	"github.com/xenking/drinkhub/internal/domain/ledger"
	"github.com/xenking/drinkhub/internal/domain/order"
	"github.com/xenking/drinkhub/internal/storage/postgres"
	"github.com/xenking/drinkhub/internal/topup"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing topup*.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "scan files and report without crediting")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, dryRun); err != nil {
		slog.Error("topup ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("topup ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, dryRun bool) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "topup*.gz"))
	if err != nil {
		return errors.Wrap(err, "list files")
	}
	if len(files) == 0 {
		slog.Info("no topup files found", slog.String("dir", dataDir))
		return nil
	}
	sort.Strings(files)

	slog.Info("scanning files", slog.Int("files", len(files)))

	batch, err := topup.Scan(ctx, files)
	if err != nil {
		return errors.Wrap(err, "scan")
	}

	slog.Info("scan complete",
		slog.Int("accepted", len(batch.Accepted)),
		slog.Int("quarantined", len(batch.Quarantined)),
		slog.Int("malformed", batch.Malformed),
	)
	for _, ref := range batch.Quarantined {
		slog.Warn("quarantined reference found in multiple files", slog.String("reference", ref))
	}

	if dryRun || len(batch.Accepted) == 0 {
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	inTx := func(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
		return store.InTx(ctx, func(ctx context.Context, tx order.Tx) error {
			return fn(ctx, tx)
		})
	}

	res, err := topup.Apply(ctx, inTx, batch.Accepted)
	if err != nil {
		return errors.Wrap(err, "apply")
	}

	slog.Info("topups applied",
		slog.Int("credited", res.Credited),
		slog.Int("duplicates", res.Duplicates),
		slog.Int("unknown_customers", res.UnknownCustomers),
	)
	return nil
}
