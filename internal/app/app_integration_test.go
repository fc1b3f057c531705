package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/poseplay/internal/capture"
	"github.com/ayusman/poseplay/internal/config"
	"github.com/ayusman/poseplay/internal/detector"
	"github.com/ayusman/poseplay/internal/session"
	"github.com/ayusman/poseplay/internal/store"
)

// alternatingFrames returns black and white frames so the wake gate always
// sees motion.
func alternatingFrames(t *testing.T) []*gocv.Mat {
	t.Helper()
	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))
	t.Cleanup(func() {
		black.Close()
		white.Close()
	})
	return []*gocv.Mat{&black, &white}
}

func startCameraApp(t *testing.T, cam capture.Camera, det detector.Detector) *App {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	a := New(Config{
		Settings:          config.Defaults(),
		Camera:            cam,
		Detector:          det,
		Store:             s,
		CalibrationFrames: 2,
	})
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(a.Stop)
	return a
}

func waitForSnapshot(t *testing.T, a *App, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		s := a.Snapshot()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last state %+v", what, s.State)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestApp_CameraPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam := capture.NewMockCamera(alternatingFrames(t), true)
	det := detector.NewMockDetector()
	det.SetPoses([]detector.Pose{detector.ReadyPose(320, 0.9, 0.9)})

	a := startCameraApp(t, cam, det)

	s := waitForSnapshot(t, a, "calibration", func(s Snapshot) bool {
		return s.Phase == session.PhaseCalibration
	})
	if !s.HasPerson || s.SessionID == "" {
		t.Errorf("calibration snapshot = %+v", s.State)
	}

	opts := det.LastOptions()
	if !opts.FlipHorizontal || opts.ScoreThreshold != 0.5 {
		t.Errorf("detector options = %+v", opts)
	}
	waitForSnapshot(t, a, "active cadence", func(Snapshot) bool { return cam.FPS() == ActiveFPS })

	det.SetPoses([]detector.Pose{detector.StandingPose(320, 0.9, 0.9)})
	waitForSnapshot(t, a, "game", func(s Snapshot) bool { return s.Phase == session.PhaseGame })
}

func TestApp_CameraOpenFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam := capture.NewMockCamera(nil, false)
	cam.SetOpenError(errors.New("no device"))

	a := startCameraApp(t, cam, detector.NewMockDetector())
	if s := a.Snapshot(); s.Phase != session.PhaseNoVideo {
		t.Errorf("Phase = %s, want no-video", s.Phase)
	}
}

func TestApp_CameraLostAndRecovered(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam := capture.NewMockCamera(nil, true)
	det := detector.NewMockDetector()

	a := startCameraApp(t, cam, det)
	waitForSnapshot(t, a, "no-video", func(s Snapshot) bool { return s.Phase == session.PhaseNoVideo })

	cam.SetFrames(alternatingFrames(t))
	waitForSnapshot(t, a, "attract", func(s Snapshot) bool { return s.Phase == session.PhaseAttract })

	if det.Calls() == 0 {
		waitForSnapshot(t, a, "inference", func(Snapshot) bool { return det.Calls() > 0 })
	}
}

func TestApp_InferenceError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cam := capture.NewMockCamera(alternatingFrames(t), true)
	det := detector.NewMockDetector()
	det.SetPoses([]detector.Pose{detector.StandingPose(320, 0.9, 0.9)})

	a := startCameraApp(t, cam, det)
	waitForSnapshot(t, a, "person", func(s Snapshot) bool { return s.HasPerson })

	det.SetError(errors.New("inference backend down"))
	s := waitForSnapshot(t, a, "person lost", func(s Snapshot) bool { return !s.HasPerson })
	if s.Phase != session.PhaseAttract {
		t.Errorf("Phase = %s, want attract", s.Phase)
	}
}

func TestApp_StartRequiresDetector(t *testing.T) {
	a := New(Config{
		Settings: config.Defaults(),
		Camera:   capture.NewMockCamera(nil, false),
	})
	if err := a.Start(context.Background()); err == nil {
		a.Stop()
		t.Fatal("expected error starting a camera without a detector")
	}
}

// hungDetector never answers until its context ends.
type hungDetector struct {
	called chan struct{}
	once   sync.Once
}

func (d *hungDetector) Estimate(ctx context.Context, frame *gocv.Mat, opts detector.Options) ([]detector.Pose, error) {
	d.once.Do(func() { close(d.called) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func (d *hungDetector) Close() error { return nil }

func TestApp_StopCancelsInFlightEstimate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	det := &hungDetector{called: make(chan struct{})}
	a := startCameraApp(t, capture.NewMockCamera(alternatingFrames(t), true), det)

	select {
	case <-det.called:
	case <-time.After(5 * time.Second):
		t.Fatal("detector never called")
	}

	stopped := make(chan struct{})
	go func() {
		a.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() blocked on an in-flight estimate")
	}
}
