package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"atelier/config"
)

func testServer(t *testing.T) (*Server, *config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BuildDir = filepath.Join(t.TempDir(), "public")
	cfg.Preview.Addr = "127.0.0.1:0"
	require.NoError(t, os.MkdirAll(cfg.Paths.BuildDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.Paths.BuildDir, "index.html"),
		[]byte("<!DOCTYPE html><title>Studio</title>"), 0644))
	return NewServer(cfg, zap.NewNop()), cfg
}

func TestServeIndex(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Studio")
}

func TestServeNotFound(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nope.html", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s, _ := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Give the listener a moment to bind before canceling.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunMissingBuildDir(t *testing.T) {
	s, cfg := testServer(t)
	require.NoError(t, os.RemoveAll(cfg.Paths.BuildDir))

	err := s.Run(context.Background())
	assert.Error(t, err)
}
