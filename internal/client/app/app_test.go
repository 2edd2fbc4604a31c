package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/quotesync/internal/client/config"
	"github.com/dmitrijs2005/quotesync/internal/client/connectivity"
)

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	c := &config.Config{}
	c.LoadDefaults()
	c.ServerEndpointAddr = serverURL
	c.DatabaseDSN = filepath.Join(dir, "quotes.db")
	c.DeviceIDPath = filepath.Join(dir, "device_id")
	c.StatusAddr = "127.0.0.1:0"
	c.ProbeInterval = 20 * time.Millisecond
	return c
}

func TestNewApp_WiresServices(t *testing.T) {
	app, err := NewApp(testConfig(t, "http://127.0.0.1:1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.store.Close() })

	assert.NotNil(t, app.QuoteService)
	assert.NotNil(t, app.StatusService)
	assert.Equal(t, connectivity.Offline, app.monitor.State())
}

func TestReachabilityProbe_FlipsMonitor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/ping" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	app, err := NewApp(testConfig(t, srv.URL))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.store.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go app.startReachabilityProbe(ctx, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return app.monitor.State() == connectivity.Online
	}, 2*time.Second, 10*time.Millisecond)

	srv.Close()
	require.Eventually(t, func() bool {
		return app.monitor.State() == connectivity.Offline
	}, 2*time.Second, 10*time.Millisecond)
}
