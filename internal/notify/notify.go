// Package notify provides cross-platform desktop notifications.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/config"
	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/logging"
)

const appTitle = "FCP Archive"

// Notifier sends desktop notifications about run outcomes. Archiving runs
// for hours unattended, so the desktop popup is often the only way the user
// learns the batch finished. Notification failures are never errors: a
// headless session just logs at debug and moves on.
type Notifier struct {
	logger    *logging.Logger
	mu        sync.RWMutex
	enabled   bool
	onSuccess bool
	onFailure bool
}

// NewNotifier creates a notifier from the notification configuration.
func NewNotifier(cfg config.NotifyConfig, logger *logging.Logger) *Notifier {
	return &Notifier{
		logger:    logger,
		enabled:   cfg.Enabled,
		onSuccess: cfg.OnSuccess,
		onFailure: cfg.OnFailure,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// RunSummary sends the end-of-run notification. A run with failures sends
// an alert regardless of the on_success setting.
func (n *Notifier) RunSummary(archived, skipped, failed int, elapsed time.Duration) {
	if !n.IsEnabled() {
		return
	}

	if failed > 0 {
		if !n.onFailure {
			return
		}
		message := fmt.Sprintf("Finished with %d failed archive(s).\n%d archived, %d skipped in %s.",
			failed, archived, skipped, formatDuration(elapsed))
		if err := beeep.Alert(appTitle, message, ""); err != nil {
			n.logger.Debug().Err(err).Msg("Failed to send run failure notification")
		}
		return
	}

	if !n.onSuccess {
		return
	}
	message := fmt.Sprintf("All done: %d archived, %d skipped in %s.",
		archived, skipped, formatDuration(elapsed))
	if err := beeep.Notify(appTitle, message, ""); err != nil {
		n.logger.Debug().Err(err).Msg("Failed to send run summary notification")
	}
}

// ArchiveFailed sends a notification for a single failed archive, so an
// unattended overnight run surfaces problems as they happen rather than at
// the end.
func (n *Notifier) ArchiveFailed(key string, err error) {
	if !n.IsEnabled() || !n.onFailure {
		return
	}

	message := fmt.Sprintf("%s failed:\n%s", truncate(key, 40), truncate(err.Error(), 100))
	if sendErr := beeep.Alert(appTitle, message, ""); sendErr != nil {
		n.logger.Debug().Err(sendErr).Str("archive", key).Msg("Failed to send archive failure notification")
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatDuration renders an elapsed time the way a person reads it, with
// sub-second noise dropped.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return d.String()
}
