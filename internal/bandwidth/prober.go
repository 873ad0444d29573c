package bandwidth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lumen-health/telehealth-backend/internal/models"
)

// ErrMeasurementFailed wraps any transport or timing failure during a probe.
// Callers recover from it: the probe is advisory and must never block entry.
var ErrMeasurementFailed = errors.New("bandwidth measurement failed")

// Measurement is the outcome of one probe run, before persistence.
type Measurement struct {
	DownloadMbps    float64
	UploadMbps      float64
	Duration        time.Duration
	Quality         string
	RecommendedTier string
}

// Grade classifies the average of download/upload Mbps into a quality grade
// and a recommended media tier: >= 3 good/hd, >= 1 fair/sd, else poor/audio.
func Grade(downloadMbps, uploadMbps float64) (quality, tier string) {
	avg := (downloadMbps + uploadMbps) / 2
	switch {
	case avg >= 3:
		return models.BandwidthGood, models.TierHD
	case avg >= 1:
		return models.BandwidthFair, models.TierSD
	default:
		return models.BandwidthPoor, models.TierAudioOnly
	}
}

// Prober runs a one-shot throughput measurement against probe endpoints:
// a timed download of a fixed-size payload and a timed upload of the same
// number of bytes.
type Prober struct {
	client       *http.Client
	downloadURL  string
	uploadURL    string
	payloadBytes int64
}

// NewProber creates a prober. payloadBytes is transferred in each direction.
func NewProber(client *http.Client, downloadURL, uploadURL string, payloadBytes int64) *Prober {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Prober{
		client:       client,
		downloadURL:  downloadURL,
		uploadURL:    uploadURL,
		payloadBytes: payloadBytes,
	}
}

// Run performs the measurement. On any failure it returns a nil measurement
// and an error wrapping ErrMeasurementFailed; no partial result is produced.
func (p *Prober) Run(ctx context.Context) (*Measurement, error) {
	start := time.Now()

	downMbps, err := p.download(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %v", ErrMeasurementFailed, err)
	}
	upMbps, err := p.upload(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: upload: %v", ErrMeasurementFailed, err)
	}

	quality, tier := Grade(downMbps, upMbps)
	return &Measurement{
		DownloadMbps:    downMbps,
		UploadMbps:      upMbps,
		Duration:        time.Since(start),
		Quality:         quality,
		RecommendedTier: tier,
	}, nil
}

func (p *Prober) download(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s?bytes=%d", p.downloadURL, p.payloadBytes)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, err
	}
	return mbps(n, time.Since(start)), nil
}

func (p *Prober) upload(ctx context.Context) (float64, error) {
	payload := bytes.Repeat([]byte{0x5a}, int(p.payloadBytes))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return 0, fmt.Errorf("status %d", resp.StatusCode)
	}
	return mbps(p.payloadBytes, time.Since(start)), nil
}

func mbps(n int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	bits := float64(n) * 8
	return bits / elapsed.Seconds() / 1e6
}
