package cli

import (
	"testing"

	"github.com/spf13/pflag"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/config"
)

func parseRunFlags(t *testing.T, args ...string) (*runFlags, *pflag.FlagSet) {
	t.Helper()
	f := &runFlags{}
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	f.register(flags)
	if err := flags.Parse(args); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}
	return f, flags
}

func TestOverlayLeavesConfigWhenFlagsUnset(t *testing.T) {
	f, flags := parseRunFlags(t)

	cfg := config.New()
	cfg.Archive.PartSizeMB = 250
	cfg.Archive.UploadWorkers = 6
	cfg.Archive.FailFast = true
	f.overlay(flags, cfg)

	if cfg.Archive.PartSizeMB != 250 {
		t.Errorf("PartSizeMB = %d, flag default clobbered the config", cfg.Archive.PartSizeMB)
	}
	if cfg.Archive.UploadWorkers != 6 {
		t.Errorf("UploadWorkers = %d, flag default clobbered the config", cfg.Archive.UploadWorkers)
	}
	if !cfg.Archive.FailFast {
		t.Error("FailFast reset by unset flag")
	}
}

func TestOverlayAppliesChangedFlags(t *testing.T) {
	f, flags := parseRunFlags(t,
		"--pattern", "*.bundle",
		"--part-size", "500",
		"--workers", "8",
		"--limit", "40",
		"--storage-class", "GLACIER",
		"--fail-fast",
	)

	cfg := config.New()
	f.overlay(flags, cfg)

	if cfg.Archive.Pattern != "*.bundle" {
		t.Errorf("Pattern = %q", cfg.Archive.Pattern)
	}
	if cfg.Archive.PartSizeMB != 500 {
		t.Errorf("PartSizeMB = %d", cfg.Archive.PartSizeMB)
	}
	if cfg.Archive.UploadWorkers != 8 {
		t.Errorf("UploadWorkers = %d", cfg.Archive.UploadWorkers)
	}
	if cfg.Archive.BandwidthLimitMBps != 40 {
		t.Errorf("BandwidthLimitMBps = %d", cfg.Archive.BandwidthLimitMBps)
	}
	if cfg.Store.StorageClass != "GLACIER" {
		t.Errorf("StorageClass = %q", cfg.Store.StorageClass)
	}
	if !cfg.Archive.FailFast {
		t.Error("FailFast not set by --fail-fast")
	}
}

func TestOverlayFailFastFalseOverridesConfig(t *testing.T) {
	f, flags := parseRunFlags(t, "--fail-fast=false")

	cfg := config.New()
	cfg.Archive.FailFast = true
	f.overlay(flags, cfg)

	if cfg.Archive.FailFast {
		t.Error("an explicit --fail-fast=false must beat fail_fast in the config")
	}
}
