package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Brownie44l1/fitness-api/internal/raster"
	"github.com/cenkalti/backoff/v4"
	"github.com/disintegration/imaging"
)

type evaluateRequest struct {
	ImageBytes []int `json:"image_bytes"`
}

type evaluateResponse struct {
	Fitness float64 `json:"fitness"`
}

// Client queries a running fitness server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// WaitReady polls /health until it answers 200 or maxWait elapses.
func (c *Client) WaitReady(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = maxWait

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			slog.Debug("Server not ready", "err", err)
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health check returned status %d", resp.StatusCode)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

// Evaluate posts img, which must already be raster.Width x raster.Height,
// and returns its fitness.
func (c *Client) Evaluate(ctx context.Context, img image.Image) (float64, error) {
	payload := raster.ToRGB(img)
	values := make([]int, len(payload))
	for i, b := range payload {
		values[i] = int(b)
	}

	body, err := json.Marshal(evaluateRequest{ImageBytes: values})
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("server returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var parsed evaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return parsed.Fitness, nil
}

// loadCandidate opens any supported image and resizes it to the scored size.
func loadCandidate(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return imaging.Resize(img, raster.Width, raster.Height, imaging.Lanczos), nil
}
