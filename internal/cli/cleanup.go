package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/config"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/constants"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/engine"
	nethttp "github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/http"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
)

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <bucket> [maxAgeDays]",
		Short: "Abort stale in-progress upload sessions",
		Long: `Lists every in-progress multipart session in the bucket and aborts
those older than maxAgeDays (default ` + strconv.Itoa(constants.DefaultSessionMaxAgeDays) + `). Aborting frees the storage
held by uploaded parts of runs that will not be resumed.

A session younger than the threshold may belong to a run that is about
to be resumed; it is left alone. Azure uncommitted blocks expire
server-side after 7 days and are reported rather than aborted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := args[0]
			maxAgeDays := constants.DefaultSessionMaxAgeDays
			if len(args) == 2 {
				d, err := strconv.Atoi(args[1])
				if err != nil || d < 0 {
					return fmt.Errorf("maxAgeDays must be a non-negative integer, got %q", args[1])
				}
				maxAgeDays = d
			}

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := GetLogger()
			ctx := GetContext()

			st, err := store.New(ctx, cfg, nethttp.NewClient())
			if err != nil {
				return err
			}

			aborted, err := engine.Cleanup(ctx, st, log, bucket, time.Duration(maxAgeDays)*24*time.Hour)
			if err != nil {
				return err
			}
			log.Infof("aborted %d stale session(s) in %s", aborted, bucket)
			return nil
		},
	}
}
