package main

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Brownie44l1/fitness-api/internal/fitness"
	"github.com/Brownie44l1/fitness-api/internal/handlers"
	"github.com/Brownie44l1/fitness-api/internal/metrics"
	"github.com/Brownie44l1/fitness-api/internal/raster"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cornerExtractor embeds an image as the colours of its four corners.
type cornerExtractor struct{}

func (cornerExtractor) Extract(img image.Image) ([]float32, error) {
	b := img.Bounds()
	var out []float32
	for _, p := range []image.Point{b.Min, {b.Max.X - 1, b.Min.Y}, {b.Min.X, b.Max.Y - 1}, b.Max.Sub(image.Pt(1, 1))} {
		r, g, bl, _ := img.At(p.X, p.Y).RGBA()
		out = append(out, float32(r>>8), float32(g>>8), float32(bl>>8))
	}
	return out, nil
}

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func startServer(t *testing.T, target image.Image) *httptest.Server {
	t.Helper()
	scorer, err := fitness.NewScorer(cornerExtractor{}, target)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	h := handlers.NewHandler(scorer, m, logger, "target.png", 8<<20)

	srv := httptest.NewServer(handlers.NewRouter(h, m, logger))
	t.Cleanup(srv.Close)
	return srv
}

func TestEvaluateAgainstServer(t *testing.T) {
	green := color.NRGBA{0, 200, 0, 255}
	srv := startServer(t, solid(raster.Width, raster.Height, green))
	client := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}

	ctx := context.Background()
	require.NoError(t, client.WaitReady(ctx, time.Second))

	score, err := client.Evaluate(ctx, solid(raster.Width, raster.Height, green))
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	score, err = client.Evaluate(ctx, solid(raster.Width, raster.Height, color.NRGBA{200, 0, 0, 255}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestEvaluateRejectedPayload(t *testing.T) {
	srv := startServer(t, solid(raster.Width, raster.Height, color.White))
	client := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}

	_, err := client.Evaluate(context.Background(), solid(10, 10, color.White))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestWaitReadyRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	require.NoError(t, client.WaitReady(context.Background(), 10*time.Second))
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitReadyGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	assert.Error(t, client.WaitReady(context.Background(), 300*time.Millisecond))
}

func TestLoadCandidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidate.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solid(40, 20, color.NRGBA{10, 20, 30, 255})))
	require.NoError(t, f.Close())

	img, err := loadCandidate(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, raster.Width, raster.Height), img.Bounds())

	_, err = loadCandidate(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
