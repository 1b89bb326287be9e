package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/config"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10c", 10, "exactly10c"},
		{"this is a long string", 10, "this is..."},
		{"", 10, ""},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{42 * time.Second, "42s"},
		{90 * time.Second, "1m30s"},
		{61 * time.Minute, "1h01m"},
		{3*time.Hour + 5*time.Minute + 10*time.Second, "3h05m"},
		{999 * time.Millisecond, "1s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.expected {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.expected)
		}
	}
}

func TestNewNotifier(t *testing.T) {
	n := NewNotifier(config.NotifyConfig{Enabled: true, OnSuccess: true, OnFailure: true}, nil)
	if !n.IsEnabled() {
		t.Error("Expected notifier to be enabled")
	}

	n2 := NewNotifier(config.NotifyConfig{Enabled: false}, nil)
	if n2.IsEnabled() {
		t.Error("Expected notifier to be disabled when Enabled=false")
	}
}

func TestSetEnabled(t *testing.T) {
	n := NewNotifier(config.NotifyConfig{Enabled: true}, nil)

	n.SetEnabled(false)
	if n.IsEnabled() {
		t.Error("Expected disabled after SetEnabled(false)")
	}

	n.SetEnabled(true)
	if !n.IsEnabled() {
		t.Error("Expected enabled after SetEnabled(true)")
	}
}

func TestNotifierDisabled_NoSend(t *testing.T) {
	// When disabled, notification methods should not panic or error.
	n := NewNotifier(config.NotifyConfig{Enabled: false}, nil)

	n.RunSummary(3, 1, 0, time.Minute)
	n.RunSummary(0, 0, 2, time.Minute)
	n.ArchiveFailed("Lib.fcpbundle.zip", errors.New("upload refused"))
}

func TestNotifierGatedBySettings(t *testing.T) {
	// Enabled overall but with both outcome toggles off: nothing sends.
	n := NewNotifier(config.NotifyConfig{Enabled: true, OnSuccess: false, OnFailure: false}, nil)

	n.RunSummary(3, 1, 0, time.Minute)
	n.RunSummary(0, 0, 2, time.Minute)
	n.ArchiveFailed("Lib.fcpbundle.zip", errors.New("upload refused"))
}
