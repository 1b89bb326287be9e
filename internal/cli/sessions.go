package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/config"
	nethttp "github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/http"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/store"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions <bucket>",
		Short: "List in-progress upload sessions",
		Long: `Read-only listing of the in-progress multipart sessions in the bucket:
each key, its upload ID, and how long ago it was started. Useful before
a cleanup to see what would be aborted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := args[0]

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := GetContext()
			st, err := store.New(ctx, cfg, nethttp.NewClient())
			if err != nil {
				return err
			}

			sessions, err := st.ListAllSessions(ctx, bucket)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Printf("no in-progress sessions in %s\n", bucket)
				return nil
			}

			for _, s := range sessions {
				age := "unknown age"
				if !s.Initiated.IsZero() {
					age = fmt.Sprintf("started %s ago", time.Since(s.Initiated).Round(time.Minute))
				}
				fmt.Printf("%s  %s  (%s)\n", s.Key, s.UploadID, age)
			}
			fmt.Printf("%d in-progress session(s) in %s\n", len(sessions), bucket)
			return nil
		},
	}
}
