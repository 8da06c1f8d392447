package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/crypto-risk-engine/internal/config"
	"github.com/ducminhle1904/crypto-risk-engine/internal/notifications"
)

type cliEnv struct {
	dir   string
	state string
}

func newCLIEnv(t *testing.T) cliEnv {
	dir := t.TempDir()
	return cliEnv{dir: dir, state: filepath.Join(dir, "state.json")}
}

func (c cliEnv) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	base := []string{"-env", filepath.Join(c.dir, "absent.env"), "-state", c.state, "-log-dir", "none"}
	code := run(context.Background(), append(base, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_OpenThenSummaryPersistsAcrossRuns(t *testing.T) {
	env := newCLIEnv(t)

	code, out, errOut := env.run(t, "open", "-symbol", "btcusdt", "-size", "0.045", "-entry", "64000", "-stop", "61600", "-sector", "Layer1")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Registered long BTCUSDT")

	_, err := os.Stat(env.state)
	require.NoError(t, err)

	code, out, errOut = env.run(t, "summary", "-equity", "5400", "-csv", filepath.Join(env.dir, "positions.csv"))
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "OPEN POSITIONS (1)")
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "2.00%")
	assert.FileExists(t, filepath.Join(env.dir, "positions.csv"))
}

func TestRun_SizeReportsMethod(t *testing.T) {
	env := newCLIEnv(t)

	code, out, errOut := env.run(t, "size", "-symbol", "BTCUSDT", "-equity", "5433.87", "-atr", "1200")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "ATR")
	assert.Contains(t, out, "0.04528225")
	assert.Contains(t, out, "$108.68")
}

func TestRun_BreakerPausesAfterLosses(t *testing.T) {
	env := newCLIEnv(t)

	for i := 0; i < 5; i++ {
		code, _, errOut := env.run(t, "breaker", "-strategy", "swing_trade", "-result", "loss")
		require.Equal(t, 0, code, errOut)
	}

	code, out, _ := env.run(t, "size", "-symbol", "BTCUSDT", "-equity", "10000", "-atr", "1200", "-strategy", "swing_trade")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "CIRCUIT_BREAKER_PAUSED")
}

func TestRun_Errors(t *testing.T) {
	env := newCLIEnv(t)

	code, _, errOut := env.run(t, "close", "-symbol", "DOGEUSDT", "-exit", "0.1")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "POSITION_NOT_FOUND")

	code, _, errOut = env.run(t, "breaker", "-result", "draw")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "win or loss")

	code, _, errOut = env.run(t, "explode")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command")

	code, _, _ = env.run(t)
	assert.Equal(t, 2, code)
}

func TestServeMux(t *testing.T) {
	env := newCLIEnv(t)
	cfg := config.Load()
	cfg.StatePath = env.state
	cfg.LogDir = "none"

	var stdout, stderr bytes.Buffer
	a, err := newApp(context.Background(), cfg, &stdout, &stderr)
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(newServeMux(a))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/summary")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	resp2, err := http.Post(srv.URL+"/summary", "application/json", nil)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)

	resp3, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}

func writeCandles(t *testing.T, path string, n int) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("timestamp,open,high,low,close,volume\n")
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "%s,100,102,98,100,1000\n", start.Add(time.Duration(i)*time.Hour).Format("2006-01-02 15:04:05"))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
}

func TestRun_SizeFromCandles(t *testing.T) {
	env := newCLIEnv(t)
	candles := filepath.Join(env.dir, "btc.csv")
	writeCandles(t, candles, 20)

	code, out, errOut := env.run(t, "size", "-symbol", "BTCUSDT", "-equity", "10000", "-candles", candles)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "ATR(14) from 20 candles: 4.00000000")
	assert.Contains(t, out, "Seeded BTCUSDT volatility history with 5 ATR samples")
	assert.Contains(t, out, "$200.00")

	// history already present: no second seeding
	code, out, errOut = env.run(t, "kelly", "-symbol", "BTCUSDT", "-candles", candles,
		"-win-rate", "0.55", "-avg-win", "150", "-avg-loss", "100")
	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, out, "Seeded")

	code, _, errOut = env.run(t, "size", "-symbol", "BTCUSDT", "-equity", "10000", "-candles", candles, "-candle-format", "xml")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "default or bybit")
}

type recordingNotifier struct {
	levels   []string
	messages []string
}

func (r *recordingNotifier) SendAlert(_ context.Context, level, message string) error {
	r.levels = append(r.levels, level)
	r.messages = append(r.messages, message)
	return nil
}

func TestAlertOnPause(t *testing.T) {
	env := newCLIEnv(t)
	cfg := config.Load()
	cfg.StatePath = env.state
	cfg.LogDir = "none"

	var stdout, stderr bytes.Buffer
	a, err := newApp(context.Background(), cfg, &stdout, &stderr)
	require.NoError(t, err)
	defer a.Close()

	rec := &recordingNotifier{}
	a.notifier = rec

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, runBreaker(ctx, a, []string{"-strategy", "scalper", "-result", "loss"}))
	}
	require.Len(t, rec.messages, 1)
	assert.Equal(t, notifications.LevelWarning, rec.levels[0])
	assert.Contains(t, rec.messages[0], "*scalper* paused after 5 consecutive losses")

	// already paused: no repeat alert
	require.NoError(t, runBreaker(ctx, a, []string{"-strategy", "scalper", "-result", "loss"}))
	assert.Len(t, rec.messages, 1)
}

func TestRun_SizeKellyZeroWinRateIsStatistics(t *testing.T) {
	env := newCLIEnv(t)

	code, out, errOut := env.run(t, "size", "-symbol", "BTCUSDT", "-equity", "10000", "-atr", "100",
		"-kelly", "-win-rate", "0", "-avg-win", "150", "-avg-loss", "100")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "No positive edge detected")
	assert.NotContains(t, out, "without trade statistics")

	code, out, errOut = env.run(t, "size", "-symbol", "BTCUSDT", "-equity", "10000", "-atr", "100", "-kelly")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "without trade statistics")
}
