package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finprofile/internal/fetcher"
	"github.com/sells-group/finprofile/internal/importer"
	"github.com/sells-group/finprofile/internal/xbrl"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Run the bulk XBRL import",
	Long: `Fetches submissions.zip and companyfacts.zip (reusing cached copies),
persists company identities, replaces each company's raw facts and upserts its
financial profile. Every run is recorded in import_runs.

With --schedule the command stays up and runs an import on the given cron
schedule, skipping a tick while the previous run is still in flight.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		refresh, _ := cmd.Flags().GetBool("refresh")
		limit, _ := cmd.Flags().GetInt("limit")
		schedule, _ := cmd.Flags().GetString("schedule")
		if schedule == "" {
			schedule = cfg.Import.Schedule
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "import: migrate")
		}

		policy, err := xbrl.LoadPolicy(cfg.Import.ConceptPolicyFile)
		if err != nil {
			return err
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Import.UserAgent,
			Timeout:    cfg.Import.HTTPTimeout,
			MaxRetries: cfg.Import.MaxRetries,
		})

		if schedule == "" {
			_, err := importer.New(st, f, policy, importOptions(refresh, limit)).Run(ctx)
			return err
		}

		// Each tick must see fresh archives.
		opts := importOptions(true, limit)
		return runScheduled(ctx, schedule, func(ctx context.Context) error {
			_, err := importer.New(st, f, policy, opts).Run(ctx)
			return err
		})
	},
}

func init() {
	importCmd.Flags().Bool("refresh", false, "re-download archives even when cached")
	importCmd.Flags().Int("limit", 0, "max company facts entries to handle (0 = all)")
	importCmd.Flags().String("schedule", "", "cron expression; run imports on this schedule instead of once")
	rootCmd.AddCommand(importCmd)
}

func importOptions(refresh bool, limit int) importer.Options {
	return importer.Options{
		SubmissionsURL:   cfg.Import.SubmissionsURL(),
		CompanyFactsURL:  cfg.Import.CompanyFactsURL(),
		CacheDir:         cfg.Import.CacheDir,
		Refresh:          refresh,
		CompanyBatchSize: cfg.Import.CompanyBatchSize,
		ProgressEvery:    cfg.Import.ProgressEvery,
		Limit:            limit,
		MaxEntrySize:     cfg.Import.MaxEntrySize,
	}
}

// runScheduled runs job on the cron schedule until ctx is done. Failed runs
// are logged and the schedule continues.
func runScheduled(ctx context.Context, schedule string, job func(ctx context.Context) error) error {
	log := zap.L().With(zap.String("component", "scheduler"))

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		if err := job(ctx); err != nil {
			log.Error("scheduled import failed", zap.Error(err))
		}
	}); err != nil {
		return eris.Wrapf(err, "import: invalid schedule %q", schedule)
	}

	log.Info("scheduled import mode", zap.String("schedule", schedule))
	c.Start()

	<-ctx.Done()
	log.Info("stopping scheduler, waiting for running import")
	<-c.Stop().Done()
	return nil
}
