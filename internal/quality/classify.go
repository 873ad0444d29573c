package quality

// Level is the discrete connection quality classification shown to users.
type Level string

const (
	Excellent    Level = "excellent"
	Good         Level = "good"
	Fair         Level = "fair"
	Poor         Level = "poor"
	Disconnected Level = "disconnected"
)

// Sample is a point-in-time network measurement for a live connection.
// Ephemeral: feeds classification only, never persisted.
type Sample struct {
	PacketLossPct   float64 `json:"packet_loss_pct"`
	LatencyMs       float64 `json:"latency_ms"`
	JitterMs        float64 `json:"jitter_ms"`
	ConnectionState string  `json:"connection_state"`
}

// Classify turns a sample into a quality level. Pure and deterministic;
// rules are evaluated in order, first match wins. Any non-connected state
// dominates the metrics.
func Classify(s Sample) Level {
	if s.ConnectionState != "connected" {
		return Disconnected
	}
	switch {
	case s.PacketLossPct > 5 || s.LatencyMs > 300:
		return Poor
	case s.PacketLossPct > 3 || s.LatencyMs > 200:
		return Fair
	case s.PacketLossPct > 1 || s.LatencyMs > 100:
		return Good
	default:
		return Excellent
	}
}

// Bars returns the signal-bar count (0-4) for a level.
func (l Level) Bars() int {
	switch l {
	case Excellent:
		return 4
	case Good:
		return 3
	case Fair:
		return 2
	case Poor:
		return 1
	default:
		return 0
	}
}

// Label returns the user-facing label for a level.
func (l Level) Label() string {
	switch l {
	case Excellent:
		return "Excellent"
	case Good:
		return "Good"
	case Fair:
		return "Fair"
	case Poor:
		return "Poor"
	default:
		return "Disconnected"
	}
}

// Color returns the UI color token for a level.
func (l Level) Color() string {
	switch l {
	case Excellent, Good:
		return "green"
	case Fair:
		return "yellow"
	case Poor:
		return "red"
	default:
		return "gray"
	}
}
