package daemon

import (
	"context"
	"encoding/json"
)

type HealthStatus string

const (
	StatusStarting HealthStatus = "starting"
	StatusRunning  HealthStatus = "running"
	StatusStopping HealthStatus = "stopping"
	StatusStopped  HealthStatus = "stopped"
)

// ComponentHealth is one component's answer to a health check. Details holds
// the desk gauges a component wants on /health and in the monitor log, such as
// open conversations or authorized librarians.
type ComponentHealth struct {
	Name    string
	Healthy bool
	Error   error
	Details map[string]any
}

// Healthy reports a working component with optional gauges.
func Healthy(name string, details map[string]any) *ComponentHealth {
	return &ComponentHealth{Name: name, Healthy: true, Details: details}
}

// Unhealthy reports a failing component.
func Unhealthy(name string, err error) *ComponentHealth {
	return &ComponentHealth{Name: name, Healthy: false, Error: err}
}

func (h *ComponentHealth) MarshalJSON() ([]byte, error) {
	out := struct {
		Healthy bool           `json:"healthy"`
		Error   string         `json:"error,omitempty"`
		Details map[string]any `json:"details,omitempty"`
	}{Healthy: h.Healthy, Details: h.Details}
	if h.Error != nil {
		out.Error = h.Error.Error()
	}
	return json.Marshal(out)
}

type Component interface {
	Name() string
	Dependencies() []string
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) (*ComponentHealth, error)
}
