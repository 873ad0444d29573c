package security

import "github.com/lumen-health/telehealth-backend/internal/models"

// SeverityFor maps a client-reported event type to its logged severity.
// Unknown types default to medium rather than being rejected: the monitor is
// an audit aid and new client-side detectors must not be dropped server-side.
func SeverityFor(eventType string) string {
	switch eventType {
	case models.EventScreenshotAttempt:
		return models.SeverityHigh
	case models.EventSessionTabHidden:
		return models.SeverityMedium
	case models.EventContextMenuAttempt:
		return models.SeverityLow
	case models.EventDevtoolsOpen:
		return models.SeverityMedium
	default:
		return models.SeverityMedium
	}
}
