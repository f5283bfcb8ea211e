package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPModel implements Model by posting windows to a remote inference service.
type HTTPModel struct {
	endpoint string
	client   *http.Client
}

type predictRequest struct {
	Keypoints [][]float64 `json:"keypoints_input"`
	Angles    [][]float64 `json:"angles_input"`
}

type predictResponse struct {
	Probabilities []float64 `json:"probabilities"`
}

// NewHTTPModel creates a model client for config.URL.
func NewHTTPModel(config ModelConfig) *HTTPModel {
	return &HTTPModel{
		endpoint: strings.TrimRight(config.URL, "/") + "/predict",
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Predict sends one window and returns the service's probabilities.
func (m *HTTPModel) Predict(ctx context.Context, keypoints, angles [][]float64) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Keypoints: keypoints, Angles: angles})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service returned status: %d", resp.StatusCode)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode predict response: %w", err)
	}

	return out.Probabilities, nil
}

// Close drops idle connections to the inference service.
func (m *HTTPModel) Close() error {
	m.client.CloseIdleConnections()
	return nil
}
