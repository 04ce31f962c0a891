package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkerProvider sends jobs to a remote model worker: POST /v1/generate to
// submit, then GET /v1/jobs/{id} until the job settles. Calls are not retried.
type WorkerProvider struct {
	endpoint     string
	client       *http.Client
	pollInterval time.Duration
	timeout      time.Duration
	logger       *zap.Logger
}

func NewWorkerProvider(endpoint string, pollInterval, timeout time.Duration, logger *zap.Logger) *WorkerProvider {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerProvider{
		endpoint:     strings.TrimRight(endpoint, "/"),
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		timeout:      timeout,
		logger:       logger.Named("worker"),
	}
}

func (w *WorkerProvider) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	return w.run(ctx, "image", req.ShotID, map[string]interface{}{
		"shot_id":      req.ShotID,
		"prompt":       req.Prompt,
		"aspect_ratio": req.AspectRatio,
	})
}

func (w *WorkerProvider) GenerateVideo(ctx context.Context, req VideoRequest) (string, error) {
	if req.ImageURL == "" {
		return "", fmt.Errorf("%w: %s", ErrImageRequired, req.ShotID)
	}
	return w.run(ctx, "video", req.ShotID, map[string]interface{}{
		"shot_id":      req.ShotID,
		"prompt":       req.Prompt,
		"image_url":    req.ImageURL,
		"aspect_ratio": req.AspectRatio,
		"duration":     req.DurationSeconds,
	})
}

func (w *WorkerProvider) run(ctx context.Context, kind, shotID string, params map[string]interface{}) (string, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	jobID, err := w.dispatch(ctx, kind, params)
	if err != nil {
		return "", fmt.Errorf("%w: dispatch %s for %s: %v", ErrProviderFailed, kind, shotID, err)
	}
	w.logger.Debug("job submitted", zap.String("job_id", jobID), zap.String("kind", kind), zap.String("shot_id", shotID))

	url, err := w.poll(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("%w: job %s: %v", ErrProviderFailed, jobID, err)
	}
	return url, nil
}

func (w *WorkerProvider) dispatch(ctx context.Context, kind string, params map[string]interface{}) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"id":         uuid.NewString(),
		"type":       kind,
		"parameters": params,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("worker status code: %d", resp.StatusCode)
	}
	var respData map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if id, ok := respData["id"].(string); ok && id != "" {
		return id, nil
	}
	if id, ok := respData["job_id"].(string); ok && id != "" {
		return id, nil
	}
	return "", fmt.Errorf("response missing 'id'")
}

type jobStatus struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Result struct {
		ResourceURL string `json:"resource_url"`
	} `json:"result"`
}

func (w *WorkerProvider) poll(ctx context.Context, jobID string) (string, error) {
	jobURL := fmt.Sprintf("%s/v1/jobs/%s", w.endpoint, jobID)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
		if err != nil {
			return "", err
		}
		resp, err := w.client.Do(req)
		if err != nil {
			w.logger.Warn("poll request failed", zap.String("job_id", jobID), zap.Error(err))
			continue
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			w.logger.Warn("read poll response failed", zap.String("job_id", jobID), zap.Error(err))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("poll status code: %d", resp.StatusCode)
		}

		var st jobStatus
		if err := json.Unmarshal(raw, &st); err != nil {
			return "", fmt.Errorf("malformed job response: %w", err)
		}
		switch strings.ToLower(st.Status) {
		case "finished", "success", "completed", "succeeded":
			if st.Result.ResourceURL == "" {
				return "", fmt.Errorf("job finished without resource_url")
			}
			return st.Result.ResourceURL, nil
		case "failed", "error":
			return "", fmt.Errorf("worker reported failure: %s", st.Error)
		}
	}
}
