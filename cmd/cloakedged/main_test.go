package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloakedge/cloakedge/internal/edge/infra/config"
)

// TestApplication_Integration tests the full application lifecycle
func TestApplication_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Stub policy API so resolution has somewhere to go
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(api.Close)

	// Find available port
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	t.Setenv("EDGE_API_BASE", api.URL)
	t.Setenv("EDGE_DEFAULT_ORIGIN", "https://fallback.example.com")
	t.Setenv("EDGE_PORT", fmt.Sprintf("%d", port))
	t.Setenv("EDGE_LOG_LEVEL", "debug")
	t.Setenv("EDGE_ENV", "dev")

	cfg, err := config.Load()
	require.NoError(t, err)

	app, err := buildApplication(cfg)
	require.NoError(t, err)
	assert.NotNil(t, app)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appErr := make(chan error, 1)
	go func() {
		appErr <- app.Run(ctx)
	}()

	// Wait for the health endpoint to answer
	base := fmt.Sprintf("http://localhost:%d", port)
	deadline := time.After(2 * time.Second)
	for {
		resp, err := http.Get(base + "/_edge/health")
		if err == nil {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			require.NoError(t, readErr)
			assert.Equal(t, "ok", string(body))
			break
		}
		select {
		case <-deadline:
			t.Fatal("Server failed to start within timeout")
		case err := <-appErr:
			t.Fatalf("Server failed to start: %v", err)
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Metrics surface is wired
	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Test graceful shutdown
	cancel()

	select {
	case err := <-appErr:
		assert.NoError(t, err, "Application should shutdown gracefully")
	case <-time.After(5 * time.Second):
		t.Fatal("Application failed to shutdown within timeout")
	}
}

// TestBuildApplication_ConfigurationVariations tests different configurations
func TestBuildApplication_ConfigurationVariations(t *testing.T) {
	validTokens := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(validTokens, []byte(`{"tok": "tok.keyauth"}`), 0o600))

	badTokens := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(badTokens, []byte("not json"), 0o600))

	tests := []struct {
		name          string
		setupEnv      func(t *testing.T)
		wantErr       bool
		errorContains string
	}{
		{
			name:     "minimal valid config",
			setupEnv: func(t *testing.T) {},
			wantErr:  false,
		},
		{
			name: "with static ACME tokens",
			setupEnv: func(t *testing.T) {
				t.Setenv("EDGE_ACME_TOKEN_FILE", validTokens)
			},
			wantErr: false,
		},
		{
			name: "malformed ACME token file",
			setupEnv: func(t *testing.T) {
				t.Setenv("EDGE_ACME_TOKEN_FILE", badTokens)
			},
			wantErr:       true,
			errorContains: "failed to load ACME tokens",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("EDGE_API_BASE", "https://api.example.com")
			t.Setenv("EDGE_DEFAULT_ORIGIN", "https://fallback.example.com")

			tt.setupEnv(t)

			cfg, err := config.Load()
			require.NoError(t, err)

			app, err := buildApplication(cfg)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
				assert.Nil(t, app)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, app)
			}
		})
	}
}

// TestApplication_ComponentIntegration tests that all components are wired
func TestApplication_ComponentIntegration(t *testing.T) {
	t.Setenv("EDGE_API_BASE", "https://api.example.com")
	t.Setenv("EDGE_API_TOKEN", "secret")
	t.Setenv("EDGE_DEFAULT_ORIGIN", "https://fallback.example.com")
	t.Setenv("EDGE_CACHE_SIZE", "50")
	t.Setenv("EDGE_MAX_CONNS", "256")

	cfg, err := config.Load()
	require.NoError(t, err)

	app, err := buildApplication(cfg)
	require.NoError(t, err)

	assert.NotNil(t, app.config)
	assert.NotNil(t, app.transport)
	assert.NotNil(t, app.handler)

	assert.Equal(t, 50, app.config.CacheSize)
	assert.Equal(t, 256, app.config.MaxConns)
}
