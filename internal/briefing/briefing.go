// Package briefing produces a structured weather style briefing for a
// location using a JSON-mode chat completion.
package briefing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type Briefing struct {
	Summary      string  `json:"summary"`
	TemperatureC float64 `json:"temperature_c"`
	Conditions   string  `json:"conditions"`
	Humidity     float64 `json:"humidity"`
	WindKPH      float64 `json:"wind_kph"`
	Advice       string  `json:"advice"`
}

type Service struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func NewService(cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Service{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

const briefingSystemPrompt = "You write short weather briefings. " +
	"Respond with a JSON object containing exactly these keys: " +
	"summary (string), temperature_c (number), conditions (string), humidity (number, percent), wind_kph (number), advice (string)."

// ForLocation rejects an empty location before any request is made.
func (s *Service) ForLocation(ctx context.Context, location string) (Briefing, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Briefing{}, fmt.Errorf("location is required")
	}

	payload := map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "system", "content": briefingSystemPrompt},
			{"role": "user", "content": fmt.Sprintf("Weather briefing for %s today.", location)},
		},
		"temperature":     s.temperature,
		"response_format": map[string]string{"type": "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Briefing{}, fmt.Errorf("marshal briefing payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Briefing{}, fmt.Errorf("build briefing request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Briefing{}, fmt.Errorf("request briefing: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Briefing{}, fmt.Errorf("read briefing response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Briefing{}, fmt.Errorf("briefing completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return Briefing{}, fmt.Errorf("decode briefing response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Briefing{}, fmt.Errorf("empty briefing choices")
	}

	var briefing Briefing
	if err := json.Unmarshal([]byte(parsed.Choices[0].Message.Content), &briefing); err != nil {
		return Briefing{}, fmt.Errorf("decode briefing content: %w", err)
	}
	return briefing, nil
}
