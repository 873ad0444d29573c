package security

import (
	"testing"

	"github.com/lumen-health/telehealth-backend/internal/models"
)

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{models.EventScreenshotAttempt, models.SeverityHigh},
		{models.EventSessionTabHidden, models.SeverityMedium},
		{models.EventContextMenuAttempt, models.SeverityLow},
		{models.EventDevtoolsOpen, models.SeverityMedium},
		{"some_future_detector", models.SeverityMedium},
		{"", models.SeverityMedium},
	}
	for _, tt := range tests {
		if got := SeverityFor(tt.eventType); got != tt.want {
			t.Errorf("SeverityFor(%q) = %q, want %q", tt.eventType, got, tt.want)
		}
	}
}
