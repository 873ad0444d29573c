package quality

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		want   Level
	}{
		{"clean connection", Sample{PacketLossPct: 0.5, LatencyMs: 50, JitterMs: 5, ConnectionState: "connected"}, Excellent},
		{"mild loss", Sample{PacketLossPct: 2, LatencyMs: 50, ConnectionState: "connected"}, Good},
		{"mild latency", Sample{PacketLossPct: 0, LatencyMs: 150, ConnectionState: "connected"}, Good},
		{"moderate loss", Sample{PacketLossPct: 4, LatencyMs: 50, ConnectionState: "connected"}, Fair},
		{"moderate latency", Sample{PacketLossPct: 0, LatencyMs: 250, ConnectionState: "connected"}, Fair},
		{"heavy loss dominates", Sample{PacketLossPct: 6, LatencyMs: 50, JitterMs: 5, ConnectionState: "connected"}, Poor},
		{"heavy latency", Sample{PacketLossPct: 0, LatencyMs: 400, ConnectionState: "connected"}, Poor},
		{"reconnecting dominates metrics", Sample{PacketLossPct: 0, LatencyMs: 10, ConnectionState: "reconnecting"}, Disconnected},
		{"disconnected state", Sample{ConnectionState: "disconnected"}, Disconnected},
		{"new state", Sample{ConnectionState: "new"}, Disconnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.sample); got != tt.want {
				t.Errorf("Classify(%+v) = %s, want %s", tt.sample, got, tt.want)
			}
		})
	}
}

func TestClassifyBoundaries(t *testing.T) {
	// Thresholds are strict: a value exactly at a threshold stays in the
	// better band, anything beyond it falls to the worse band.
	tests := []struct {
		loss, latency float64
		want          Level
	}{
		{5, 50, Fair},
		{5.1, 50, Poor},
		{0, 300, Fair},
		{0, 300.1, Poor},
		{3, 50, Good},
		{3.1, 50, Fair},
		{0, 200, Good},
		{0, 200.1, Fair},
		{1, 50, Excellent},
		{1.1, 50, Good},
		{0, 100, Excellent},
		{0, 100.1, Good},
	}
	for _, tt := range tests {
		s := Sample{PacketLossPct: tt.loss, LatencyMs: tt.latency, ConnectionState: "connected"}
		if got := Classify(s); got != tt.want {
			t.Errorf("Classify(loss=%v latency=%v) = %s, want %s", tt.loss, tt.latency, got, tt.want)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	s := Sample{PacketLossPct: 2.5, LatencyMs: 180, JitterMs: 12, ConnectionState: "connected"}
	first := Classify(s)
	for i := 0; i < 100; i++ {
		if got := Classify(s); got != first {
			t.Fatalf("classification changed between calls: %s then %s", first, got)
		}
	}
}

func TestLevelUIMapping(t *testing.T) {
	tests := []struct {
		level Level
		bars  int
		label string
		color string
	}{
		{Excellent, 4, "Excellent", "green"},
		{Good, 3, "Good", "green"},
		{Fair, 2, "Fair", "yellow"},
		{Poor, 1, "Poor", "red"},
		{Disconnected, 0, "Disconnected", "gray"},
	}
	for _, tt := range tests {
		if got := tt.level.Bars(); got != tt.bars {
			t.Errorf("%s.Bars() = %d, want %d", tt.level, got, tt.bars)
		}
		if got := tt.level.Label(); got != tt.label {
			t.Errorf("%s.Label() = %q, want %q", tt.level, got, tt.label)
		}
		if got := tt.level.Color(); got != tt.color {
			t.Errorf("%s.Color() = %q, want %q", tt.level, got, tt.color)
		}
	}
}
