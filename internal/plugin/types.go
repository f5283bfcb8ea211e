// Package plugin runs external hook programs when workout sessions finish.
package plugin

import (
	"encoding/json"

	"github.com/ayusman/formcoach/internal/report"
)

// EventSessionCompleted is sent when a session reaches the completed phase.
const EventSessionCompleted = "session_completed"

// Manifest describes a plugin's metadata and the events it subscribes to.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is written to the plugin's stdin as a single JSON document.
type Request struct {
	Event    string          `json:"event"`
	Session  string          `json:"session"`
	Exercise string          `json:"exercise"`
	Reps     int             `json:"reps"`
	Report   report.Report   `json:"report"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Subscribes reports whether the plugin wants the given event.
func (p *Plugin) Subscribes(event string) bool {
	for _, e := range p.Manifest.Events {
		if e == event {
			return true
		}
	}
	return false
}
