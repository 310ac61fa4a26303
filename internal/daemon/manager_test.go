package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harunnryd/libradesk/internal/config"
	"github.com/harunnryd/libradesk/internal/logger"
)

type mockComponent struct {
	name         string
	dependencies []string
	initCalled   bool
	startCalled  bool
	stopCalled   bool
	healthCalled bool
	initError    error
	startError   error
	stopError    error
	healthError  error
	healthResult *ComponentHealth
}

func newMockComponent(name string, dependencies []string) *mockComponent {
	return &mockComponent{
		name:         name,
		dependencies: dependencies,
		healthResult: &ComponentHealth{
			Name:    name,
			Healthy: true,
		},
	}
}

func (m *mockComponent) Name() string {
	return m.name
}

func (m *mockComponent) Dependencies() []string {
	return m.dependencies
}

func (m *mockComponent) Init(ctx context.Context) error {
	m.initCalled = true
	return m.initError
}

func (m *mockComponent) Start(ctx context.Context) error {
	m.startCalled = true
	return m.startError
}

func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopCalled = true
	return m.stopError
}

func (m *mockComponent) Health(ctx context.Context) (*ComponentHealth, error) {
	m.healthCalled = true
	return m.healthResult, m.healthError
}

func TestNewDaemon(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{
			name:    "valid daemon",
			cfg:     &config.Config{},
			wantErr: false,
		},
		{
			name:    "nil config",
			cfg:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDaemon(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDaemon() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if len(d.components) != 0 {
					t.Errorf("components = %v, want 0", len(d.components))
				}
				if d.Health() != StatusStarting {
					t.Errorf("health = %v, want %v", d.Health(), StatusStarting)
				}
			}
		})
	}
}

func TestValidateConfig_CreatesDataDir(t *testing.T) {
	dataFile := filepath.Join(t.TempDir(), "nested", "librarian-data.json")
	cfg := &config.Config{
		Server:     config.ServerConfig{Port: 8080},
		Librarians: config.LibrariansConfig{DataFile: dataFile},
	}

	d, err := NewDaemon(cfg)
	if err != nil {
		t.Fatalf("NewDaemon() failed: %v", err)
	}

	if err := d.validateConfig(); err != nil {
		t.Fatalf("validateConfig() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Dir(dataFile)); err != nil {
		t.Fatalf("expected data dir to exist: %v", err)
	}
}

func TestValidateConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{name: "port zero", cfg: &config.Config{Librarians: config.LibrariansConfig{DataFile: "x.json"}}},
		{name: "port too high", cfg: &config.Config{Server: config.ServerConfig{Port: 70000}, Librarians: config.LibrariansConfig{DataFile: "x.json"}}},
		{name: "no data file", cfg: &config.Config{Server: config.ServerConfig{Port: 3000}}},
		{name: "relative dashboard url", cfg: &config.Config{
			Server:        config.ServerConfig{Port: 3000},
			Librarians:    config.LibrariansConfig{DataFile: filepath.Join(t.TempDir(), "x.json")},
			Notifications: config.NotificationsConfig{DashboardURL: "/librarian"},
		}},
		{name: "negative log capacity", cfg: &config.Config{
			Server:        config.ServerConfig{Port: 3000},
			Librarians:    config.LibrariansConfig{DataFile: filepath.Join(t.TempDir(), "x.json")},
			Notifications: config.NotificationsConfig{LogCapacity: -1},
		}},
		{name: "slack port collides", cfg: &config.Config{
			Server:     config.ServerConfig{Port: 3000},
			Librarians: config.LibrariansConfig{DataFile: filepath.Join(t.TempDir(), "x.json")},
			Adapters:   config.AdaptersConfig{Slack: config.SlackConfig{Enabled: true, Port: 3000}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := NewDaemon(tt.cfg)
			if err := d.validateConfig(); err == nil {
				t.Fatal("validateConfig() expected error")
			}
		})
	}
}

func TestAddComponent(t *testing.T) {
	cfg := &config.Config{}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp2 := newMockComponent("Comp2", []string{"Comp1"})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	if len(d.components) != 2 {
		t.Errorf("components = %v, want 2", len(d.components))
	}

	if len(d.shutdownOrder) != 2 {
		t.Errorf("shutdownOrder = %v, want 2", len(d.shutdownOrder))
	}

	if d.shutdownOrder[0] != "Comp2" {
		t.Errorf("shutdownOrder[0] = %v, want Comp2", d.shutdownOrder[0])
	}
}

func TestInitializeComponents(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp2 := newMockComponent("Comp2", []string{"Comp1"})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	ctx := context.Background()
	err := d.initializeComponents(ctx)

	if err != nil {
		t.Errorf("initializeComponents() error = %v", err)
	}

	if !comp1.initCalled {
		t.Error("Comp1.Init() was not called")
	}

	if !comp2.initCalled {
		t.Error("Comp2.Init() was not called")
	}
}

func TestInitializeComponentsCircularDependency(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{"Comp2"})
	comp2 := newMockComponent("Comp2", []string{"Comp1"})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	ctx := context.Background()
	err := d.initializeComponents(ctx)

	if err == nil {
		t.Error("Expected error for circular dependency, got nil")
	}
}

func TestInitializeComponentsMissingDependency(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp := newMockComponent("Comp", []string{"NonExistent"})

	d.AddComponent(comp)

	ctx := context.Background()
	err := d.initializeComponents(ctx)

	if err == nil {
		t.Error("Expected error for missing dependency, got nil")
	}
}

func TestStartComponents(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp2 := newMockComponent("Comp2", []string{})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	ctx := context.Background()
	err := d.startComponents(ctx)

	if err != nil {
		t.Errorf("startComponents() error = %v", err)
	}

	if !comp1.startCalled {
		t.Error("Comp1.Start() was not called")
	}

	if !comp2.startCalled {
		t.Error("Comp2.Start() was not called")
	}
}

func TestShutdownComponents(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp2 := newMockComponent("Comp2", []string{})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	ctx := context.Background()
	err := d.shutdownComponents(ctx)

	if err != nil {
		t.Errorf("shutdownComponents() error = %v", err)
	}

	if !comp1.stopCalled {
		t.Error("Comp1.Stop() was not called")
	}

	if !comp2.stopCalled {
		t.Error("Comp2.Stop() was not called")
	}
}

func TestComponentHealth(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp1.healthResult.Healthy = true

	comp2 := newMockComponent("Comp2", []string{})
	comp2.healthResult.Healthy = false
	comp2.healthResult.Error = fmt.Errorf("mock error")

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	healths := d.ComponentHealth()

	if len(healths) != 2 {
		t.Errorf("ComponentHealth() returned %v healths, want 2", len(healths))
	}

	if healths["Comp1"].Healthy != true {
		t.Error("Comp1 should be healthy")
	}

	if healths["Comp2"].Healthy != false {
		t.Error("Comp2 should be unhealthy")
	}

	if healths["Comp2"].Error == nil {
		t.Error("Comp2.Error should not be nil")
	}
}

func TestComponentHealth_MissingReport(t *testing.T) {
	d, _ := NewDaemon(&config.Config{})

	silent := newMockComponent("Silent", nil)
	silent.healthResult = nil
	failing := newMockComponent("Failing", nil)
	failing.healthResult = nil
	failing.healthError = fmt.Errorf("registry unreadable")

	d.AddComponent(silent)
	d.AddComponent(failing)

	healths := d.ComponentHealth()
	if healths["Silent"] == nil || healths["Silent"].Healthy {
		t.Fatalf("Silent = %+v, want unhealthy", healths["Silent"])
	}
	if healths["Failing"] == nil || healths["Failing"].Error == nil || healths["Failing"].Error.Error() != "registry unreadable" {
		t.Fatalf("Failing = %+v, want health error", healths["Failing"])
	}
}

func TestSnapshot_CarriesDeskGauges(t *testing.T) {
	d, _ := NewDaemon(&config.Config{})

	convs := newMockComponent("Conversations", nil)
	convs.healthResult = Healthy("Conversations", map[string]any{"conversations": 3, "awaiting_librarian": 1})
	d.AddComponent(convs)

	report := d.Snapshot()
	if !report.Healthy() {
		t.Fatal("report should be healthy")
	}
	if report.Status != StatusStarting {
		t.Errorf("status = %v, want %v", report.Status, StatusStarting)
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	var decoded struct {
		Components map[string]struct {
			Healthy bool           `json:"healthy"`
			Details map[string]int `json:"details"`
		} `json:"components"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if got := decoded.Components["Conversations"].Details["awaiting_librarian"]; got != 1 {
		t.Errorf("awaiting_librarian = %d, want 1", got)
	}

	convs.healthResult = Unhealthy("Conversations", fmt.Errorf("no model"))
	if d.Snapshot().Healthy() {
		t.Error("report should be unhealthy")
	}
}

func TestCheckComponentHealth_LogsGauges(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	var buf bytes.Buffer
	logger.SetupWriter(&buf, "debug")

	d, _ := NewDaemon(&config.Config{})
	libs := newMockComponent("Librarians", nil)
	libs.healthResult = Healthy("Librarians", map[string]any{"authorized": 2})
	d.AddComponent(libs)

	d.checkComponentHealth(context.Background())
	out := buf.String()
	if !strings.Contains(out, "Desk healthy") || !strings.Contains(out, "authorized") {
		t.Fatalf("health log missing gauges: %s", out)
	}

	buf.Reset()
	libs.healthResult = Unhealthy("Librarians", fmt.Errorf("registry file missing"))
	d.checkComponentHealth(context.Background())
	if !strings.Contains(buf.String(), "registry file missing") {
		t.Fatalf("health log missing failure: %s", buf.String())
	}
}

func TestRollback(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp2 := newMockComponent("Comp2", []string{})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	ctx := context.Background()
	d.rollback(ctx)

	if !comp1.stopCalled {
		t.Error("Comp1.Stop() was not called during rollback")
	}

	if !comp2.stopCalled {
		t.Error("Comp2.Stop() was not called during rollback")
	}

	if d.Health() != StatusStopped {
		t.Errorf("Health = %v, want StatusStopped", d.Health())
	}
}

func TestGetComponentByName(t *testing.T) {
	cfg := &config.Config{}
	d, _ := NewDaemon(cfg)

	comp1 := newMockComponent("Comp1", []string{})
	comp2 := newMockComponent("Comp2", []string{})

	d.AddComponent(comp1)
	d.AddComponent(comp2)

	tests := []struct {
		name       string
		searchName string
		wantNil    bool
	}{
		{
			name:       "existing component",
			searchName: "Comp1",
			wantNil:    false,
		},
		{
			name:       "non-existing component",
			searchName: "NonExistent",
			wantNil:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comp := d.getComponentByName(tt.searchName)
			if (comp == nil) != tt.wantNil {
				t.Errorf("getComponentByName() = %v, wantNil %v", comp, tt.wantNil)
			}
		})
	}
}
