package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/poseplay/internal/app"
	"github.com/ayusman/poseplay/internal/config"
	"github.com/ayusman/poseplay/internal/detector"
	"github.com/ayusman/poseplay/internal/session"
	"github.com/ayusman/poseplay/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *app.App) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	a := app.New(app.Config{
		Settings:          config.Defaults(),
		Store:             s,
		CalibrationFrames: 2,
	})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(a.Stop)

	ts := httptest.NewServer(New(Config{App: a, Store: s}))
	t.Cleanup(ts.Close)
	return ts, a
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) app.Snapshot {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST %s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
	}

	var snap app.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	return snap
}

func TestAPI_PosesDriveSession(t *testing.T) {
	ts, _ := newTestServer(t)

	ready := map[string]any{
		"frameWidth": 640,
		"poses":      []detector.Pose{detector.ReadyPose(320, 0.9, 0.9)},
	}
	snap := postJSON(t, ts, "/api/poses", ready)
	if snap.Phase != session.PhaseCalibration {
		t.Fatalf("Phase = %s, want calibration", snap.Phase)
	}

	snap = postJSON(t, ts, "/api/session/calibrated", nil)
	if snap.Phase != session.PhaseGame || snap.Subphase != session.SubphaseCountdown {
		t.Errorf("got %s/%s, want game/countdown", snap.Phase, snap.Subphase)
	}

	resp, err := ts.Client().Post(ts.URL+"/api/game/events", "application/json", strings.NewReader(`{"outcome":"hit"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("hit during countdown status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	snap = postJSON(t, ts, "/api/session/reset", nil)
	if snap.Phase != session.PhaseAttract {
		t.Errorf("Phase = %s after reset, want attract", snap.Phase)
	}
}

func TestAPI_StateWebSocket(t *testing.T) {
	ts, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/state/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	read := func() app.Snapshot {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var snap app.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		return snap
	}

	if snap := read(); snap.Phase != session.PhaseAttract {
		t.Fatalf("first snapshot phase = %s, want attract", snap.Phase)
	}

	postJSON(t, ts, "/api/session/video", map[string]bool{"available": false})

	for {
		if snap := read(); snap.Phase == session.PhaseNoVideo {
			break
		}
	}
}

func TestAPI_ResultsAndPlugins(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/results")
	if err != nil {
		t.Fatalf("GET /api/results error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /api/results status = %d", resp.StatusCode)
	}

	resp, err = ts.Client().Get(ts.URL + "/api/plugins")
	if err != nil {
		t.Fatalf("GET /api/plugins error = %v", err)
	}
	defer resp.Body.Close()

	var plugins struct {
		Plugins []pluginResponse `json:"plugins"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&plugins); err != nil {
		t.Fatalf("failed to decode plugins: %v", err)
	}
	if plugins.Plugins == nil || len(plugins.Plugins) != 0 {
		t.Errorf("plugins = %v, want empty list", plugins.Plugins)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Phase  string `json:"phase"`
		Camera bool   `json:"camera"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" || health.Phase != "attract" || health.Camera {
		t.Errorf("health = %+v", health)
	}
}
