package store

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/config"
)

// New selects and builds the object store backend named by the
// configuration. An unknown provider is an invocation error.
func New(ctx context.Context, cfg *config.Config, httpClient *nethttp.Client) (ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Provider)) {
	case "s3":
		return NewS3Store(ctx, &cfg.S3, httpClient)
	case "azure":
		return NewAzureStore(&cfg.Azure, cfg.Store.StorageClass, httpClient)
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.Store.Provider)
	}
}
