package components

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/harunnryd/libradesk/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Librarians: config.LibrariansConfig{
			DataFile: filepath.Join(t.TempDir(), "librarian-data.json"),
			Seed:     []string{"log:front-desk"},
		},
	}
}

func initCore(t *testing.T, cfg *config.Config) (*LibrariansComponent, *ConversationsComponent) {
	t.Helper()
	ctx := context.Background()

	libs := NewLibrariansComponent(cfg)
	if err := libs.Init(ctx); err != nil {
		t.Fatalf("librarians init: %v", err)
	}
	convs := NewConversationsComponent(cfg, libs)
	if err := convs.Init(ctx); err != nil {
		t.Fatalf("conversations init: %v", err)
	}
	return libs, convs
}

func TestNewHTTPServerComponent_DefaultDependencies(t *testing.T) {
	comp := NewHTTPServerComponent(nil, &config.ServerConfig{Port: 8080}, nil, nil)
	deps := comp.Dependencies()

	want := []string{"Librarians", "Conversations"}
	if len(deps) != len(want) {
		t.Fatalf("dependencies length = %d, want %d", len(deps), len(want))
	}
	for i := range want {
		if deps[i] != want[i] {
			t.Fatalf("dependency[%d] = %s, want %s", i, deps[i], want[i])
		}
	}
}

func TestNewHTTPServerComponentWithDependencies_Copy(t *testing.T) {
	custom := []string{"Adapters"}
	comp := NewHTTPServerComponentWithDependencies(nil, &config.ServerConfig{Port: 8080}, nil, nil, custom)

	custom[0] = "Mutated"

	deps := comp.Dependencies()
	if len(deps) != 1 {
		t.Fatalf("dependencies length = %d, want 1", len(deps))
	}
	if deps[0] != "Adapters" {
		t.Fatalf("dependency = %s, want Adapters", deps[0])
	}

	deps[0] = "MutatedAgain"
	if comp.Dependencies()[0] != "Adapters" {
		t.Fatal("Dependencies() must return a copy")
	}
}

func TestHTTPServerComponent_InitRequiresConversations(t *testing.T) {
	comp := NewHTTPServerComponent(nil, &config.ServerConfig{Port: 8080}, nil, nil)
	if err := comp.Init(context.Background()); err == nil {
		t.Fatal("expected init to fail without conversations")
	}
}

func TestHTTPServerComponent_Routes(t *testing.T) {
	cfg := testConfig(t)
	libs, convs := initCore(t, cfg)

	comp := NewHTTPServerComponent(nil, &cfg.Server, convs, libs)
	if err := comp.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	handler := comp.server.Handler

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "health", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "health wrong method", method: http.MethodPost, path: "/health", want: http.StatusMethodNotAllowed},
		{name: "polling", method: http.MethodGet, path: "/api/config/polling", want: http.StatusOK},
		{name: "admin list", method: http.MethodGet, path: "/api/admin/librarians", want: http.StatusOK},
		{name: "unknown conversation", method: http.MethodGet, path: "/api/conversation/nobody", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Fatalf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatal("missing X-Request-ID header")
			}
		})
	}
}

func TestHTTPServerComponent_HealthBody(t *testing.T) {
	cfg := testConfig(t)
	libs, convs := initCore(t, cfg)

	comp := NewHTTPServerComponent(nil, &cfg.Server, convs, libs)
	if err := comp.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	rec := httptest.NewRecorder()
	comp.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status = %v, want ok", body["status"])
	}
	if body["conversations"] != float64(0) {
		t.Fatalf("conversations = %v, want 0", body["conversations"])
	}
}
