// Package main provides a share plugin that turns a finished game into a
// results URL the kiosk can show as a link or QR code.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

const defaultBaseURL = "http://localhost:8080"

// Request represents the input from the plugin executor.
type Request struct {
	Event   string          `json:"event"`
	Config  json.RawMessage `json:"config"`
	Payload json.RawMessage `json:"payload"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	URL     string `json:"url,omitempty"`
}

type config struct {
	BaseURL string `json:"baseURL"`
}

type result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Rank  string  `json:"rank"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	if req.Event != "session.completed" {
		writeResponse(Response{Error: fmt.Sprintf("unsupported event: %s", req.Event)})
		return
	}

	link, err := shareURL(req.Config, req.Payload)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}
	writeResponse(Response{Success: true, URL: link})
}

// shareURL builds <base>/results/<id>?rank=..&score=.. from the plugin config
// and result payload.
func shareURL(rawConfig, rawResult json.RawMessage) (string, error) {
	cfg := config{BaseURL: os.Getenv("POSEPLAY_SHARE_BASE_URL")}
	if len(rawConfig) > 0 && string(rawConfig) != "null" {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return "", fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	var res result
	if err := json.Unmarshal(rawResult, &res); err != nil {
		return "", fmt.Errorf("failed to parse result: %w", err)
	}
	if res.ID == "" {
		return "", errors.New("result id is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	base.Path += "/results/" + res.ID
	q := url.Values{}
	if res.Rank != "" {
		q.Set("rank", res.Rank)
	}
	q.Set("score", strconv.Itoa(int(res.Score*100+0.5)))
	base.RawQuery = q.Encode()
	return base.String(), nil
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
