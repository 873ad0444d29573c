package bandwidth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/lumen-health/telehealth-backend/internal/models"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		name     string
		down, up float64
		quality  string
		tier     string
	}{
		{"symmetric good", 4, 4, models.BandwidthGood, models.TierHD},
		{"exactly at good threshold", 3, 3, models.BandwidthGood, models.TierHD},
		{"fast down slow up averages fair", 3.5, 0.5, models.BandwidthFair, models.TierSD},
		{"exactly at fair threshold", 1, 1, models.BandwidthFair, models.TierSD},
		{"dialup", 0.5, 0.5, models.BandwidthPoor, models.TierAudioOnly},
		{"just under fair", 0.9, 0.9, models.BandwidthPoor, models.TierAudioOnly},
		{"zero", 0, 0, models.BandwidthPoor, models.TierAudioOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quality, tier := Grade(tt.down, tt.up)
			if quality != tt.quality || tier != tt.tier {
				t.Errorf("Grade(%v, %v) = %q/%q, want %q/%q",
					tt.down, tt.up, quality, tier, tt.quality, tt.tier)
			}
		})
	}
}

func probeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/payload", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.ParseInt(r.URL.Query().Get("bytes"), 10, 64)
		if err != nil || n <= 0 {
			http.Error(w, "bad size", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		buf := make([]byte, 8192)
		for n > 0 {
			chunk := int64(len(buf))
			if n < chunk {
				chunk = n
			}
			if _, err := w.Write(buf[:chunk]); err != nil {
				return
			}
			n -= chunk
		}
	})
	mux.HandleFunc("/sink", func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProberRun(t *testing.T) {
	srv := probeServer(t)
	p := NewProber(srv.Client(), srv.URL+"/payload", srv.URL+"/sink", 256*1024)

	m, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.DownloadMbps <= 0 || m.UploadMbps <= 0 {
		t.Errorf("non-positive throughput: down=%v up=%v", m.DownloadMbps, m.UploadMbps)
	}
	if m.Duration <= 0 {
		t.Errorf("non-positive duration: %v", m.Duration)
	}
	wantQuality, wantTier := Grade(m.DownloadMbps, m.UploadMbps)
	if m.Quality != wantQuality || m.RecommendedTier != wantTier {
		t.Errorf("measurement graded %q/%q, want %q/%q", m.Quality, m.RecommendedTier, wantQuality, wantTier)
	}
}

func TestProberRunServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewProber(srv.Client(), srv.URL, srv.URL, 1024)
	m, err := p.Run(context.Background())
	if !errors.Is(err, ErrMeasurementFailed) {
		t.Fatalf("Run err = %v, want ErrMeasurementFailed", err)
	}
	if m != nil {
		t.Errorf("Run returned a partial measurement on failure: %+v", m)
	}
}

func TestProberRunContextCancelled(t *testing.T) {
	srv := probeServer(t)
	p := NewProber(srv.Client(), srv.URL+"/payload", srv.URL+"/sink", 1024)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()

	if _, err := p.Run(ctx); !errors.Is(err, ErrMeasurementFailed) {
		t.Errorf("Run with expired context err = %v, want ErrMeasurementFailed", err)
	}
}

func TestMbps(t *testing.T) {
	// 1 MB in one second is 8 Mbps.
	got := mbps(1_000_000, time.Second)
	if got < 7.99 || got > 8.01 {
		t.Errorf("mbps(1MB, 1s) = %v, want 8", got)
	}
	if got := mbps(1024, 0); got <= 0 {
		t.Errorf("mbps with zero elapsed = %v, want positive", got)
	}
}
