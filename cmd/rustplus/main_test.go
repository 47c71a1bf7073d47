package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/rustplus/internal/rpclient"
)

func TestMetricsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "rustplus_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	srv := httptest.NewServer(metricsRouter(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), "rustplus_test_total 1")
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server":"1.2.3.4","port":28082,"player_id":765,"player_token":-12345,"use_proxy":true}`), 0o644))

	var cfg rpclient.RustPlusConfig
	require.NoError(t, loadJSON(path, &cfg))
	assert.Equal(t, rpclient.RustPlusConfig{Server: "1.2.3.4", Port: 28082, PlayerID: 765, PlayerToken: -12345, UseProxy: true}, cfg)

	assert.Error(t, loadJSON(filepath.Join(dir, "missing.json"), &cfg))
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	assert.Error(t, loadJSON(path, &cfg))
}

func TestGameClock(t *testing.T) {
	assert.Equal(t, "00:00", gameClock(0))
	assert.Equal(t, "07:30", gameClock(7.5))
	assert.Equal(t, "19:45", gameClock(19.75))
	assert.Equal(t, "00:00", gameClock(23.9999))
}

func TestPrintResponse(t *testing.T) {
	var buf bytes.Buffer
	printResponse(&buf, &rpclient.AppResponse{TeamInfo: &rpclient.AppTeamInfo{
		LeaderSteamID: 1,
		Members: []*rpclient.AppTeamMember{
			{SteamID: 1, Name: "egor", IsOnline: true, IsAlive: true},
			{SteamID: 2, Name: "bob", IsAlive: false},
		},
	}})
	assert.Equal(t, "Team:\n  egor (1) online *\n  bob (2) offline, dead\n", buf.String())

	buf.Reset()
	printResponse(&buf, &rpclient.AppResponse{Info: &rpclient.AppInfo{Name: "srv", Map: "Procedural Map", MapSize: 4000, Seed: 7, Players: 10, MaxPlayers: 200}})
	assert.Equal(t, "Server:  srv\nMap:     Procedural Map (4000, seed 7)\nPlayers: 10/200 (queue 0)\n", buf.String())
}
