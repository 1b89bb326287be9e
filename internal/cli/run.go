package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/archive"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/config"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/engine"
	nethttp "github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/http"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/lock"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/notify"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/splitter"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/util/buffers"
)

// runFlags holds the run command's flag values. Only flags the user set on
// the command line override the config file, so a flag default never clobbers
// a configured value and an explicit --fail-fast=false wins over fail_fast in
// the config.
type runFlags struct {
	pattern      string
	partSizeMB   int
	workers      int
	limitMBps    int
	storageClass string
	failFast     bool
	dryRun       bool
}

func (f *runFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.pattern, "pattern", "*.fcpbundle", "Glob matched against directory names")
	flags.IntVar(&f.partSizeMB, "part-size", 100, "Chunk file size in MB")
	flags.IntVar(&f.workers, "workers", 1, "Concurrent part uploads per archive")
	flags.IntVar(&f.limitMBps, "limit", 0, "Upload bandwidth cap in MB/s (0 = unlimited)")
	flags.StringVar(&f.storageClass, "storage-class", "DEEP_ARCHIVE", "Storage class / access tier for committed objects")
	flags.BoolVar(&f.failFast, "fail-fast", false, "Stop the run at the first failed archive")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Discover and report; touch nothing local or remote")
}

func (f *runFlags) overlay(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("pattern") {
		cfg.Archive.Pattern = f.pattern
	}
	if flags.Changed("part-size") {
		cfg.Archive.PartSizeMB = f.partSizeMB
	}
	if flags.Changed("workers") {
		cfg.Archive.UploadWorkers = f.workers
	}
	if flags.Changed("limit") {
		cfg.Archive.BandwidthLimitMBps = f.limitMBps
	}
	if flags.Changed("storage-class") {
		cfg.Store.StorageClass = f.storageClass
	}
	if flags.Changed("fail-fast") {
		cfg.Archive.FailFast = f.failFast
	}
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run <bucket> [sourcePath ...]",
		Short: "Archive matching directories to the bucket",
		Long: `Discovers archive directories under the source paths (default: the
current directory), splits each into chunk files, and uploads them as
multipart sessions to the bucket.

Individual archive failures do not stop the run or affect its exit code;
re-run the same command to retry them. Only invocation problems (bad
arguments, missing zip tool, config errors, another run in progress)
exit non-zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := args[0]
			sources := args[1:]
			if len(sources) == 0 {
				sources = []string{"."}
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			f.overlay(cmd.Flags(), cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := GetLogger()
			ctx := GetContext()

			archives, err := archive.Discover(sources, cfg.Archive.Pattern)
			if err != nil {
				return err
			}
			if len(archives) == 0 {
				log.Infof("no archives matching %q under the source paths", cfg.Archive.Pattern)
				return nil
			}

			if f.dryRun {
				log.Infof("dry run: %d archive(s) would be processed", len(archives))
				for _, a := range archives {
					size, err := a.DiskUsage()
					if err != nil {
						log.Warnf("  %s -> %s (size unknown: %v)", a.Path, a.Key, err)
						continue
					}
					log.Infof("  %s -> %s (%.1f GB)", a.Path, a.Key, float64(size)/(1024*1024*1024))
				}
				return nil
			}

			tool, err := splitter.LookTool(splitter.ZipTool)
			if err != nil {
				return err
			}

			st, err := store.New(ctx, cfg, nethttp.NewClient())
			if err != nil {
				return err
			}

			buffers.Configure(cfg.PartSizeBytes())
			notifier := notify.NewNotifier(cfg.Notify, log)
			if noNotify {
				notifier.SetEnabled(false)
			}
			eng := engine.New(st,
				splitter.NewAdapter(splitter.NewZipSplitter(tool, cfg.PartSizeBytes()), log),
				log,
				engine.Options{
					Bucket:         bucket,
					StorageClass:   cfg.Store.StorageClass,
					Workers:        cfg.Archive.UploadWorkers,
					BandwidthLimit: cfg.BandwidthLimitBytes(),
					FailFast:       cfg.Archive.FailFast,
					OnFailure:      notifier.ArchiveFailed,
				})

			runLock, err := lock.Acquire(log, bucket, sources, eng.RunID())
			if err != nil {
				return err
			}
			defer runLock.Release()

			summary, err := eng.Run(ctx, archives)
			if summary != nil {
				notifier.RunSummary(summary.Archived, summary.Skipped, summary.Failed, summary.Duration)
			}
			if err != nil {
				return fmt.Errorf("run interrupted: %w", err)
			}
			return nil
		},
	}

	f.register(cmd.Flags())

	return cmd
}
