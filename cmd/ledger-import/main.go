// Command ledger-import copies a budget snapshot into the SQLite mirror and
// announces the change so running servers drop their cached metrics.
//
// Usage:
//
//	ledger-import -file ./data/ledger.json [-db ./data/ledger.db]
//	ledger-import -source ynab [-budget <id>]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"ynabmetrics/internal/amqp"
	"ynabmetrics/internal/backend"
	"ynabmetrics/internal/cli"
	"ynabmetrics/internal/config"
	"ynabmetrics/internal/ledger"
	"ynabmetrics/internal/log"
	"ynabmetrics/internal/storage"
)

type options struct {
	source   string
	file     string
	dbPath   string
	budgetID string
	publish  bool
	timeout  time.Duration
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := config.Load()

	var opts options
	flag.StringVar(&opts.source, "source", "file", "snapshot source: file, ynab or sheets")
	flag.StringVar(&opts.file, "file", cfg.LedgerDataFile, "snapshot JSON file (source=file)")
	flag.StringVar(&opts.dbPath, "db", cfg.SQLiteDBPath, "SQLite mirror path")
	flag.StringVar(&opts.budgetID, "budget", cfg.YNABBudgetID, "budget id to fetch (source=ynab)")
	flag.BoolVar(&opts.publish, "publish", cfg.AMQPEnabled(), "publish a ledger change notice over AMQP")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall import timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	if err := run(ctx, cfg, opts, logger.WithComponent(log.ComponentImport)); err != nil {
		logger.Error("Ledger import failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *log.Logger) error {
	snap, err := loadSnapshot(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}

	db, err := storage.NewSQLiteLedger(opts.dbPath, logger)
	if err != nil {
		return fmt.Errorf("open mirror: %w", err)
	}
	defer db.Close()

	start := time.Now()
	if err := db.ImportSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	logger.Info("Imported ledger snapshot",
		log.FieldOperation, log.OpImport,
		log.FieldBudgetID, snap.Budget.ID,
		"accounts", len(snap.Accounts),
		"category_groups", len(snap.CategoryGroups),
		"transactions", len(snap.Transactions),
		log.FieldDuration, time.Since(start).Milliseconds())

	if !opts.publish {
		return nil
	}
	if !cfg.AMQPEnabled() {
		return errors.New("publish requested but AMQP_URL is not set")
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("connect AMQP: %w", err)
	}
	defer client.Close()

	return client.PublishLedgerChanged(ctx, amqp.NewLedgerChangedMessage(snap.Budget.ID))
}

func loadSnapshot(ctx context.Context, cfg *config.Config, opts options, logger *log.Logger) (ledger.Snapshot, error) {
	switch opts.source {
	case "file":
		if opts.file == "" {
			return ledger.Snapshot{}, errors.New("-file is required for source=file")
		}
		return ledger.ReadSnapshotFile(opts.file)

	case config.BackendYNAB, config.BackendSheets:
		src := *cfg
		src.LedgerBackend = opts.source
		bc, err := backend.FromAppConfig(&src, nil)
		if err != nil {
			return ledger.Snapshot{}, err
		}
		res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
		if err != nil {
			return ledger.Snapshot{}, err
		}
		if res.Cleanup != nil {
			defer res.Cleanup()
		}
		snap, err := ledger.Fetch(ctx, res.Client, opts.budgetID)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("fetch from %s: %w", opts.source, err)
		}
		return snap, nil

	default:
		return ledger.Snapshot{}, fmt.Errorf("unknown source %q: must be file, ynab or sheets", opts.source)
	}
}
