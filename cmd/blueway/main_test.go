package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "PG_DSN", "NATS_URL", "METRICS_ADDR", "ROUTES_FILE",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("PYROSCOPE_PROFILING_ENABLED", "false")
	t.Setenv("DEMO_RIDERS", "false")
	t.Setenv("HTTP_ADDR", "127.0.0.1:0")
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRun_StartupFailureReturnsError(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ROUTES_FILE", filepath.Join(t.TempDir(), "missing.gpx"))

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load routes file")
}

func TestRun_ServerFailureRunsCleanup(t *testing.T) {
	isolateEnv(t)
	metricsAddr := freeAddr(t)
	t.Setenv("METRICS_ADDR", metricsAddr)
	t.Setenv("HTTP_ADDR", "127.0.0.1:-1")

	done := make(chan error, 1)
	go func() { done <- run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http server")
	case <-time.After(20 * time.Second):
		t.Fatal("run did not return")
	}

	// the deferred metrics shutdown released its port
	assert.Eventually(t, func() bool {
		l, err := net.Listen("tcp", metricsAddr)
		if err != nil {
			return false
		}
		_ = l.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRun_StopsWhenContextEnds(t *testing.T) {
	isolateEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- run(ctx) }()
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("run did not return")
	}
}
