// Package config provides configuration management for fcparchive.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/constants"
)

// Config holds all settings for a run. Values come from the INI config file
// when present, with command-line flags layered on top by the CLI.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\fcparchive\config
//   - Unix: ~/.config/fcparchive/config
//
// INI format:
//
//	[archive]
//	pattern = *.fcpbundle
//	part_size_mb = 100
//	upload_workers = 1
//	bandwidth_limit_mbps = 0
//	fail_fast = false
//
//	[store]
//	provider = s3
//	storage_class = DEEP_ARCHIVE
//
//	[s3]
//	region = us-east-1
//	profile =
//	endpoint_url =
//	access_key_id =
//	secret_access_key =
//
//	[azure]
//	account_name =
//	account_key =
//	connection_string =
//
//	[notify]
//	enabled = true
//	on_success = true
//	on_failure = true
type Config struct {
	Archive ArchiveConfig
	Store   StoreConfig
	S3      S3Config
	Azure   AzureConfig
	Notify  NotifyConfig
}

// ArchiveConfig contains settings for discovery, splitting, and uploading.
type ArchiveConfig struct {
	// Pattern is the glob matched against directory names during discovery.
	// Default: "*.fcpbundle"
	Pattern string `ini:"pattern"`

	// PartSizeMB is the chunk file size in megabytes. Must stay constant
	// across a crashed run and its resume; a trusted manifest pins the
	// size used when the chunks were written.
	// Minimum: 5, Maximum: 1024, Default: 100
	PartSizeMB int `ini:"part_size_mb"`

	// UploadWorkers is the number of parts staged concurrently per archive.
	// 1 means sequential uploads. Minimum: 1, Maximum: 16, Default: 1
	UploadWorkers int `ini:"upload_workers"`

	// BandwidthLimitMBps caps aggregate upload read throughput in
	// megabytes per second. 0 means unlimited. Default: 0
	BandwidthLimitMBps int `ini:"bandwidth_limit_mbps"`

	// FailFast stops the run at the first archive failure instead of
	// continuing with the remaining archives. Default: false
	FailFast bool `ini:"fail_fast"`
}

// StoreConfig selects the object store backend.
type StoreConfig struct {
	// Provider is the storage backend: "s3" or "azure". Default: "s3"
	Provider string `ini:"provider"`

	// StorageClass is applied when a session is created (S3 storage class)
	// or committed (Azure access tier). Default: "DEEP_ARCHIVE"
	StorageClass string `ini:"storage_class"`
}

// S3Config contains AWS S3 connection settings. All fields are optional:
// empty values defer to the SDK's default credential and region resolution.
type S3Config struct {
	Region          string `ini:"region"`
	Profile         string `ini:"profile"`
	EndpointURL     string `ini:"endpoint_url"`
	AccessKeyID     string `ini:"access_key_id"`
	SecretAccessKey string `ini:"secret_access_key"`
}

// AzureConfig contains Azure Blob Storage connection settings. Either a
// full connection string or an account name + key pair is required when
// the azure provider is selected.
type AzureConfig struct {
	AccountName      string `ini:"account_name"`
	AccountKey       string `ini:"account_key"`
	ConnectionString string `ini:"connection_string"`
}

// NotifyConfig contains settings for desktop notifications.
type NotifyConfig struct {
	// Enabled indicates whether notifications are shown at all.
	// Default: true
	Enabled bool `ini:"enabled"`

	// OnSuccess shows a notification when a run finishes with no failures.
	// Default: true
	OnSuccess bool `ini:"on_success"`

	// OnFailure shows a notification when a run records failed archives.
	// Default: true
	OnFailure bool `ini:"on_failure"`
}

// Validation errors
var (
	ErrMissingPattern   = errors.New("pattern is required")
	ErrInvalidPartSize  = errors.New("part_size_mb must be between 5 and 1024")
	ErrInvalidWorkers   = errors.New("upload_workers must be between 1 and 16")
	ErrInvalidBandwidth = errors.New("bandwidth_limit_mbps must not be negative")
	ErrInvalidProvider  = errors.New(`provider must be "s3" or "azure"`)
)

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Archive: ArchiveConfig{
			Pattern:       "*.fcpbundle",
			PartSizeMB:    constants.DefaultPartSize / (1024 * 1024),
			UploadWorkers: constants.DefaultUploadWorkers,
		},
		Store: StoreConfig{
			Provider:     "s3",
			StorageClass: "DEEP_ARCHIVE",
		},
		Notify: NotifyConfig{
			Enabled:   true,
			OnSuccess: true,
			OnFailure: true,
		},
	}
}

// Load reads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := New()

	// If no path provided, use default
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil // Return defaults if we can't determine path
		}
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // Return defaults if config doesn't exist
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	archiveSection := iniFile.Section("archive")
	cfg.Archive.Pattern = archiveSection.Key("pattern").MustString(cfg.Archive.Pattern)
	cfg.Archive.PartSizeMB = archiveSection.Key("part_size_mb").MustInt(cfg.Archive.PartSizeMB)
	cfg.Archive.UploadWorkers = archiveSection.Key("upload_workers").MustInt(cfg.Archive.UploadWorkers)
	cfg.Archive.BandwidthLimitMBps = archiveSection.Key("bandwidth_limit_mbps").MustInt(0)
	cfg.Archive.FailFast = archiveSection.Key("fail_fast").MustBool(false)

	storeSection := iniFile.Section("store")
	cfg.Store.Provider = storeSection.Key("provider").MustString(cfg.Store.Provider)
	cfg.Store.StorageClass = storeSection.Key("storage_class").MustString(cfg.Store.StorageClass)

	s3Section := iniFile.Section("s3")
	cfg.S3.Region = s3Section.Key("region").String()
	cfg.S3.Profile = s3Section.Key("profile").String()
	cfg.S3.EndpointURL = s3Section.Key("endpoint_url").String()
	cfg.S3.AccessKeyID = s3Section.Key("access_key_id").String()
	cfg.S3.SecretAccessKey = s3Section.Key("secret_access_key").String()

	azureSection := iniFile.Section("azure")
	cfg.Azure.AccountName = azureSection.Key("account_name").String()
	cfg.Azure.AccountKey = azureSection.Key("account_key").String()
	cfg.Azure.ConnectionString = azureSection.Key("connection_string").String()

	notifySection := iniFile.Section("notify")
	cfg.Notify.Enabled = notifySection.Key("enabled").MustBool(true)
	cfg.Notify.OnSuccess = notifySection.Key("on_success").MustBool(true)
	cfg.Notify.OnFailure = notifySection.Key("on_failure").MustBool(true)

	return cfg, nil
}

// Validate checks if the configuration is usable for a run.
// Returns nil if valid, or an error describing what's wrong.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.Archive.Pattern) == "" {
		return ErrMissingPattern
	}
	minMB := constants.MinPartSize / (1024 * 1024)
	maxMB := constants.MaxPartSize / (1024 * 1024)
	if cfg.Archive.PartSizeMB < minMB || cfg.Archive.PartSizeMB > maxMB {
		return ErrInvalidPartSize
	}
	if cfg.Archive.UploadWorkers < 1 || cfg.Archive.UploadWorkers > constants.MaxUploadWorkers {
		return ErrInvalidWorkers
	}
	if cfg.Archive.BandwidthLimitMBps < 0 {
		return ErrInvalidBandwidth
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Provider)) {
	case "s3", "azure":
	default:
		return ErrInvalidProvider
	}
	return nil
}

// PartSizeBytes returns the configured chunk size in bytes.
func (cfg *Config) PartSizeBytes() int64 {
	return int64(cfg.Archive.PartSizeMB) * 1024 * 1024
}

// BandwidthLimitBytes returns the configured upload throughput cap in
// bytes per second, or 0 for unlimited.
func (cfg *Config) BandwidthLimitBytes() int64 {
	return int64(cfg.Archive.BandwidthLimitMBps) * 1024 * 1024
}

// DefaultConfigPath returns the default path for the config file.
//   - Windows: %USERPROFILE%\.config\fcparchive\config
//   - Unix: ~/.config/fcparchive/config
func DefaultConfigPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "fcparchive")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "fcparchive")
	}

	return filepath.Join(configDir, "config"), nil
}
