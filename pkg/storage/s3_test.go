package storage

import (
	"testing"
	"time"
)

func TestAuditKey(t *testing.T) {
	endedAt := time.Date(2026, 3, 14, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	got := AuditKey("practice-1", "session-2", endedAt)
	// Date component is normalized to UTC so keys sort consistently.
	want := "security-audits/practice-1/session-2/2026-03-15.json"
	if got != want {
		t.Errorf("AuditKey = %q, want %q", got, want)
	}
}
