// Package plugin discovers and runs external share plugins. A plugin is a
// directory holding a plugin.json manifest and an executable that reads one
// JSON request on stdin and writes one JSON response on stdout.
package plugin

import "encoding/json"

// Events a plugin may subscribe to.
const (
	EventSessionCompleted = "session.completed"
)

// Manifest describes a plugin's metadata and subscriptions.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Events       []string        `json:"events"`
	Config       json.RawMessage `json:"config,omitempty"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is sent to a plugin on stdin.
type Request struct {
	Event   string          `json:"event"`
	Config  json.RawMessage `json:"config,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	URL     string          `json:"url,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the plugin subscribed to event.
func (p *Plugin) Handles(event string) bool {
	for _, e := range p.Manifest.Events {
		if e == event {
			return true
		}
	}
	return false
}
