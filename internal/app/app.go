// Package app wires capture, inference, pose tracking and the session machine
// into one processing loop.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/poseplay/internal/capture"
	"github.com/ayusman/poseplay/internal/config"
	"github.com/ayusman/poseplay/internal/detector"
	"github.com/ayusman/poseplay/internal/events"
	"github.com/ayusman/poseplay/internal/plugin"
	"github.com/ayusman/poseplay/internal/pose"
	"github.com/ayusman/poseplay/internal/session"
	"github.com/ayusman/poseplay/internal/store"
)

// Inference cadence.
const (
	// IdleFPS is the inference rate while nobody is tracked.
	IdleFPS = 5
	// ActiveFPS is the inference rate while a player is tracked.
	ActiveFPS = 15
)

var (
	// ErrStopped is returned by commands sent after the loop exited.
	ErrStopped = errors.New("app is not running")
	// ErrNotPlaying is returned when a game event arrives outside active play.
	ErrNotPlaying = errors.New("game is not in play")
	// ErrNotCalibrating is returned when calibration is confirmed outside the calibration phase.
	ErrNotCalibrating = errors.New("session is not calibrating")
)

// Config holds configuration options for the application.
type Config struct {
	Settings config.Settings

	// Camera is the frame source. When nil, poses arrive only through Observe.
	Camera capture.Camera
	// Detector runs inference on camera frames. Required when Camera is set.
	Detector detector.Detector

	Store     *store.Store
	Publisher events.Publisher
	PluginDir string

	// Preview keeps the latest frame JPEG-encoded for the MJPEG stream.
	Preview bool

	Clock             clockwork.Clock
	CalibrationFrames int
	PluginTimeout     time.Duration
}

// App is the main application. All session mutations happen on the loop
// goroutine started by Start.
type App struct {
	config    Config
	settings  config.Settings
	clock     clockwork.Clock
	camera    capture.Camera
	detector  detector.Detector
	wake      *capture.WakeGate
	publisher events.Publisher
	store     *store.Store

	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	// Owned by the loop goroutine.
	machine     *session.Machine
	tracker     *pose.Tracker
	calibrator  *pose.Calibrator
	inferTicker clockwork.Ticker
	seq         uint64
	inFlight    bool
	cameraLost  bool
	resultID    string
	shareURL    string

	commands chan func()
	results  chan inference

	mu       sync.RWMutex
	enabled  bool
	snapshot Snapshot
	subs     map[chan Snapshot]struct{}
	frame    []byte

	stopCh  chan struct{}
	done    chan struct{}
	workers sync.WaitGroup
}

// New creates an App. Nothing runs until Start.
func New(cfg Config) *App {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}
	s := cfg.Settings

	a := &App{
		config:     cfg,
		settings:   s,
		clock:      cfg.Clock,
		camera:     cfg.Camera,
		detector:   cfg.Detector,
		publisher:  cfg.Publisher,
		store:      cfg.Store,
		pluginMgr:  plugin.NewManager(cfg.PluginDir),
		pluginExec: plugin.NewExecutor(cfg.PluginTimeout),
		machine: session.New(session.Options{
			ResetDelay:   s.ResetDelay(),
			TotalTargets: s.TotalTargets(),
			Clock:        cfg.Clock,
		}),
		tracker:    pose.NewTracker(s.MinPoseConfidence),
		calibrator: pose.NewCalibrator(cfg.CalibrationFrames, s.MinPartConfidence),
		commands:   make(chan func()),
		results:    make(chan inference, 1),
		enabled:    true,
		subs:       make(map[chan Snapshot]struct{}),
	}
	if a.camera != nil {
		a.wake = capture.NewWakeGate(0, 0)
	}
	a.snapshot = a.buildSnapshot()
	return a
}

// DiscoverPlugins scans the plugin directory.
func (a *App) DiscoverPlugins() error {
	if a.config.PluginDir == "" {
		return nil
	}
	return a.pluginMgr.Discover()
}

// Start opens the camera and starts the processing loop. A camera that fails
// to open puts the session into the no-video phase instead of failing Start.
func (a *App) Start(ctx context.Context) error {
	if a.camera != nil && a.detector == nil {
		return errors.New("camera configured without a detector")
	}

	a.mu.Lock()
	if a.stopCh != nil {
		a.mu.Unlock()
		return nil
	}
	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	a.mu.Unlock()

	if a.camera != nil {
		if err := a.camera.Open(); err != nil {
			log.Error().Err(err).Msg("camera unavailable")
			a.cameraLost = true
			a.machine.SetNoVideo(true)
		} else {
			a.camera.SetFPS(IdleFPS)
		}
		a.inferTicker = a.clock.NewTicker(interval(IdleFPS))
	}
	a.publishSnapshot()

	go a.run(ctx)

	log.Info().Str("mode", a.settings.Mode).Bool("camera", a.camera != nil).Msg("pipeline started")
	return nil
}

// Stop halts the loop and releases the camera, detector and timers.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh = nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	// The loop cancels its context on exit, which ends in-flight estimates.
	<-done
	a.workers.Wait()

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing camera")
		}
	}
	if a.wake != nil {
		a.wake.Close()
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing detector")
		}
	}
	a.machine.Stop()

	a.mu.Lock()
	for ch := range a.subs {
		close(ch)
		delete(a.subs, ch)
	}
	a.mu.Unlock()

	log.Info().Msg("pipeline stopped")
}

// SetEnabled pauses or resumes frame capture.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	snap := a.snapshot
	snap.Enabled = enabled
	a.broadcastLocked(snap)
	a.mu.Unlock()
	log.Info().Bool("enabled", enabled).Msg("capture toggled")
}

// IsEnabled returns whether frame capture is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Settings returns the resolved settings.
func (a *App) Settings() config.Settings {
	return a.settings
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Store returns the result store, or nil.
func (a *App) Store() *store.Store {
	return a.store
}

// HasCamera reports whether frames come from a local camera.
func (a *App) HasCamera() bool {
	return a.camera != nil
}

func interval(fps int) time.Duration {
	return time.Second / time.Duration(fps)
}
