package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hiksync/internal/cameras"
	"hiksync/internal/config"
	"hiksync/internal/logging"
	"hiksync/internal/mediasync"
	"hiksync/internal/metrics"
	"hiksync/internal/retention"
	"hiksync/internal/runlock"
	"hiksync/internal/scheduler"
	"hiksync/internal/segments"
	"hiksync/internal/syncrun"
)

type runFlags struct {
	mode            string
	interval        int
	input           string
	output          string
	cache           string
	lockFile        string
	translation     string
	retentionDays   int
	videoDays       int
	imageDays       int
	syncImages      bool
	timeout         int
	fastExtraction  bool
	metricsTextfile string
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync camera segments into the output archive",
		Long: `Sync every camera once, or keep syncing on an interval when the
schedule mode is "scheduled". Each pass holds the run lock, extracts new
segments, applies retention and reports a summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if code := runSync(cmd.Context(), cfg, cmd.OutOrStdout()); code != 0 {
				return exitError{code: code}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.mode, "mode", "", "Run mode: once or scheduled")
	f.IntVar(&flags.interval, "interval", 0, "Minutes between scheduled passes")
	f.StringVar(&flags.input, "input", "", "Input root containing one directory per camera")
	f.StringVar(&flags.output, "output", "", "Output root for synced media")
	f.StringVar(&flags.cache, "cache", "", "Extraction cache directory")
	f.StringVar(&flags.lockFile, "lock-file", "", "Run lock file path")
	f.StringVar(&flags.translation, "translation", "", "Camera name to tag table (name:tag,name:tag)")
	f.IntVar(&flags.retentionDays, "retention-days", 0, "Delete synced files older than this many days (0 disables)")
	f.IntVar(&flags.videoDays, "video-days", 0, "Only sync videos from the last N days (0 syncs all)")
	f.IntVar(&flags.imageDays, "image-days", 0, "Only sync images from the last N days (0 syncs all)")
	f.BoolVar(&flags.syncImages, "sync-images", true, "Sync images in addition to videos")
	f.IntVar(&flags.timeout, "timeout", 0, "Per-segment extraction timeout in seconds (0 disables)")
	f.BoolVar(&flags.fastExtraction, "fast-extraction", true, "Copy byte ranges directly when input and output share a filesystem")
	f.StringVar(&flags.metricsTextfile, "metrics-textfile", "", "Write Prometheus textfile metrics to this path")

	changed := func(name string) func(*cobra.Command) bool {
		return func(invoked *cobra.Command) bool {
			return invoked == cmd && cmd.Flags().Changed(name)
		}
	}
	ctx.addOverride(changed("mode"), func(c *config.Config) { c.Schedule.Mode = flags.mode })
	ctx.addOverride(changed("interval"), func(c *config.Config) { c.Schedule.IntervalMinutes = flags.interval })
	ctx.addOverride(changed("input"), func(c *config.Config) { c.Paths.InputDir = flags.input })
	ctx.addOverride(changed("output"), func(c *config.Config) { c.Paths.OutputDir = flags.output })
	ctx.addOverride(changed("cache"), func(c *config.Config) { c.Paths.CacheDir = flags.cache })
	ctx.addOverride(changed("lock-file"), func(c *config.Config) { c.Paths.LockFile = flags.lockFile })
	ctx.addOverride(changed("translation"), func(c *config.Config) { c.Cameras.Translation = flags.translation })
	ctx.addOverride(changed("retention-days"), func(c *config.Config) { c.Retention.Days = flags.retentionDays })
	ctx.addOverride(changed("video-days"), func(c *config.Config) { c.Sync.VideoSyncDays = flags.videoDays })
	ctx.addOverride(changed("image-days"), func(c *config.Config) { c.Sync.ImageSyncDays = flags.imageDays })
	ctx.addOverride(changed("sync-images"), func(c *config.Config) { c.Sync.SyncImages = flags.syncImages })
	ctx.addOverride(changed("timeout"), func(c *config.Config) { c.Sync.ExtractionTimeoutSeconds = flags.timeout })
	ctx.addOverride(changed("fast-extraction"), func(c *config.Config) { c.Sync.UseFastExtraction = flags.fastExtraction })
	ctx.addOverride(changed("metrics-textfile"), func(c *config.Config) { c.Metrics.TextfilePath = flags.metricsTextfile })

	return cmd
}

// runSync executes the configured mode and returns the process exit code.
func runSync(parent context.Context, cfg *config.Config, out io.Writer) int {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	processID := uuid.NewString()
	logger, logPath, err := logging.NewFromConfig(cfg, processID)
	if err != nil {
		fmt.Fprintf(out, "init logger: %v\n", err)
		return 1
	}
	if cfg.Paths.LogDir != "" {
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: logging.LogFilePattern,
			Exclude: []string{logPath},
		})
	}

	if err := cfg.EnsureDirectories(); err != nil {
		logging.ErrorWithContext(logger, "failed to prepare directories", "directories_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output_dir and cache_dir permissions"),
		)
		return 1
	}

	orch, err := buildOrchestrator(cfg, logger)
	if err != nil {
		logging.ErrorWithContext(logger, "failed to initialize sync", "init_failed", logging.Error(err))
		return 1
	}

	pass := func(ctx context.Context) syncrun.Result {
		return orch.Run(logging.WithRunID(ctx, uuid.NewString()))
	}

	if !cfg.Scheduled() {
		result := pass(ctx)
		if result.Status != syncrun.StatusAlreadyRunning {
			fmt.Fprintln(out, renderSummary(out, result))
		}
		return result.Status.ExitCode()
	}

	if err := scheduler.Run(ctx, cfg.Interval(), func(ctx context.Context) { pass(ctx) }, logger); err != nil {
		logging.ErrorWithContext(logger, "scheduler failed", "scheduler_failed", logging.Error(err))
		return 1
	}
	return 0
}

func buildOrchestrator(cfg *config.Config, logger *slog.Logger) (*syncrun.Orchestrator, error) {
	client, err := segments.New(cfg.ExtractorBinary(), segments.WithArgs(cfg.Extractor.Args...))
	if err != nil {
		return nil, err
	}
	engine := mediasync.New(client, mediasync.Options{
		CacheDir:          cfg.Paths.CacheDir,
		SyncImages:        cfg.Sync.SyncImages,
		VideoWindow:       cfg.VideoWindow(),
		ImageWindow:       cfg.ImageWindow(),
		ExtractionTimeout: cfg.ExtractionTimeout(),
		UseFastExtraction: cfg.Sync.UseFastExtraction,
	}, logger)

	var reporters []syncrun.Reporter
	if reporter := metrics.NewTextfileReporter(strings.TrimSpace(cfg.Metrics.TextfilePath)); reporter != nil {
		reporters = append(reporters, reporter)
	}

	return syncrun.New(syncrun.Deps{
		Lock:          runlock.New(cfg.Paths.LockFile, logger),
		Syncer:        engine,
		Sweeper:       retention.New(logger),
		Cameras:       func() ([]cameras.Camera, error) { return cameras.Resolve(cfg) },
		RetentionDays: cfg.Retention.Days,
		Reporters:     reporters,
		Logger:        logger,
	})
}
