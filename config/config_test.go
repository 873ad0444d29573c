package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telehealth.WaitingRoomTimeoutMinutes != 30 {
		t.Errorf("waiting room timeout = %d, want 30", cfg.Telehealth.WaitingRoomTimeoutMinutes)
	}
	if cfg.Telehealth.MaxParticipants != 2 {
		t.Errorf("max participants = %d, want 2", cfg.Telehealth.MaxParticipants)
	}
	if cfg.Telehealth.SweepIntervalSeconds != 120 {
		t.Errorf("sweep interval = %d, want 120", cfg.Telehealth.SweepIntervalSeconds)
	}
	if cfg.Telehealth.SecurityEventRateLimit != 30 {
		t.Errorf("security event rate limit = %d, want 30", cfg.Telehealth.SecurityEventRateLimit)
	}
}

func TestLoadTelehealthOverrides(t *testing.T) {
	t.Setenv("WAITING_ROOM_TIMEOUT_MINUTES", "15")
	t.Setenv("SESSION_MAX_PARTICIPANTS", "6")
	t.Setenv("WEBRTC_ICE_URLS", "stun:a.example.com:3478, turn:b.example.com:3478")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telehealth.WaitingRoomTimeoutMinutes != 15 {
		t.Errorf("waiting room timeout = %d, want 15", cfg.Telehealth.WaitingRoomTimeoutMinutes)
	}
	if cfg.Telehealth.MaxParticipants != 6 {
		t.Errorf("max participants = %d, want 6", cfg.Telehealth.MaxParticipants)
	}
	want := []string{"stun:a.example.com:3478", "turn:b.example.com:3478"}
	if len(cfg.WebRTC.ICEUrls) != len(want) {
		t.Fatalf("ICE urls = %v, want %v", cfg.WebRTC.ICEUrls, want)
	}
	for i := range want {
		if cfg.WebRTC.ICEUrls[i] != want[i] {
			t.Errorf("ICE url[%d] = %q, want %q", i, cfg.WebRTC.ICEUrls[i], want[i])
		}
	}
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{URL: "postgres://explicit/db"}
	if got := c.DSN(); got != "postgres://explicit/db" {
		t.Errorf("DSN with URL = %q", got)
	}
	c = DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "telehealth", SSLMode: "disable"}
	want := "postgres://u:p@db:5432/telehealth?sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
