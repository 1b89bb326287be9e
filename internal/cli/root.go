// Package cli provides the command-line interface for fcparchive.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/logging"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/version"
)

var (
	// Global flags
	cfgFile  string
	verbose  bool
	noNotify bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fcparchive",
		Short: "Archive Final Cut Pro libraries to cold cloud storage",
		Long: `fcparchive ` + version.Version + ` - archives large directory bundles
(Final Cut Pro libraries by default) to cold object storage.

Each archive is zipped into fixed-size chunk files, uploaded as a
resumable multipart session, verified against the committed object, and
only then cleaned up locally. A run killed at any point is resumed by
running the same command again; chunks and uploaded parts are never
redone.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger()
			if verbose {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&noNotify, "no-notify", false, "Disable desktop notifications")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fcparchive %s (built %s)\n", version.Version, version.BuildTime)
		},
	}
}

// Execute runs the CLI with Ctrl+C cancelling in-flight operations.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nreceived %v, cancelling; uploaded parts are kept for resume\n", sig)
				cancelFunc()
			}
		}
	}()

	err := NewRootCmd().Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
