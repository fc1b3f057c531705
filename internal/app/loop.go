package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/poseplay/internal/detector"
	"github.com/ayusman/poseplay/internal/events"
	"github.com/ayusman/poseplay/internal/pose"
	"github.com/ayusman/poseplay/internal/session"
)

// inference is one completed estimate, stamped with the sequence number it
// was issued under.
type inference struct {
	seq        uint64
	poses      []detector.Pose
	frameWidth float64
	err        error
}

// run is the single processing loop. It owns the machine, tracker and
// calibrator; everything else reaches them through a.commands.
func (a *App) run(ctx context.Context) {
	defer close(a.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	second := a.clock.NewTicker(time.Second)
	defer second.Stop()

	var inferC <-chan time.Time
	if a.inferTicker != nil {
		inferC = a.inferTicker.Chan()
		defer a.inferTicker.Stop()
	}

	a.mu.RLock()
	stopCh := a.stopCh
	a.mu.RUnlock()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return

		case <-inferC:
			a.captureAndInfer(ctx)

		case r := <-a.results:
			a.inFlight = false
			a.applyInference(r)

		case e := <-a.machine.Expired():
			prev := a.machine.State()
			if a.machine.HandleExpiry(e) {
				a.afterChange(prev)
			}

		case <-second.Chan():
			prev := a.machine.State()
			if a.machine.Step() {
				a.afterChange(prev)
			}

		case cmd := <-a.commands:
			cmd()
		}
	}
}

// captureAndInfer reads one frame and issues an inference unless one is
// already in flight.
func (a *App) captureAndInfer(ctx context.Context) {
	if a.inFlight || !a.IsEnabled() {
		return
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.onCameraError(err)
		return
	}
	if a.cameraLost {
		a.cameraLost = false
		prev := a.machine.State()
		a.machine.SetNoVideo(false)
		a.afterChange(prev)
		log.Info().Msg("camera recovered")
	}

	if a.config.Preview {
		a.storePreview(frame)
	}

	if !a.tracker.HasPerson() && !a.wake.Pass(frame) {
		frame.Close()
		return
	}

	a.seq++
	a.inFlight = true
	seq := a.seq
	width := float64(frame.Cols())
	opts := detector.Options{
		FlipHorizontal: true,
		ScoreThreshold: a.settings.MinPartConfidence,
	}

	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		poses, err := a.detector.Estimate(ctx, frame, opts)
		frame.Close()

		select {
		case a.results <- inference{seq: seq, poses: poses, frameWidth: width, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (a *App) onCameraError(err error) {
	if a.cameraLost {
		return
	}
	log.Error().Err(err).Msg("camera read failed")
	a.cameraLost = true

	prev := a.machine.State()
	a.machine.SetNoVideo(true)
	a.afterChange(prev)
}

func (a *App) storePreview(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		log.Debug().Err(err).Msg("preview encode failed")
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.mu.Lock()
	a.frame = data
	a.mu.Unlock()
}

// applyInference runs one result through the tracker, activation check and
// calibrator, then ticks the session machine.
func (a *App) applyInference(r inference) {
	if r.err != nil {
		log.Warn().Err(r.err).Uint64("seq", r.seq).Msg("inference failed")
		r.poses = nil
	}

	if !a.tracker.Apply(r.seq, r.poses, r.frameWidth) {
		log.Debug().Uint64("seq", r.seq).Uint64("last", a.tracker.LastSeq()).Msg("stale inference dropped")
		return
	}

	prev := a.machine.State()
	current := a.tracker.Current()

	in := session.Inputs{
		HasPerson:     current != nil,
		PoseActivated: pose.IsActivated(current, a.settings.MinPartConfidence),
	}
	if prev.Phase == session.PhaseCalibration {
		in.Calibrated = a.calibrator.Observe(current)
	}

	a.machine.Tick(in)
	a.afterChange(prev)

	if prev.HasPerson != in.HasPerson {
		a.setCadence(in.HasPerson)
	}
}

func (a *App) setCadence(active bool) {
	if a.inferTicker == nil {
		return
	}
	fps := IdleFPS
	if active {
		fps = ActiveFPS
	}
	a.inferTicker.Reset(interval(fps))
	a.camera.SetFPS(fps)
	log.Debug().Int("fps", fps).Msg("inference cadence changed")
}

// afterChange reacts to a state transition and publishes the new snapshot.
func (a *App) afterChange(prev session.State) {
	cur := a.machine.State()

	if cur.Phase != prev.Phase {
		switch cur.Phase {
		case session.PhaseAttract:
			a.calibrator.Reset()
			a.resultID = ""
			a.shareURL = ""
		case session.PhaseShare:
			a.completeSession(cur)
		}
		a.emit(cur)
	}

	a.publishSnapshot()
}

// emit publishes a phase event without blocking the loop.
func (a *App) emit(s session.State) {
	payload := map[string]any{
		"sessionId": s.SessionID,
		"phase":     s.Phase,
		"subphase":  s.Subphase,
	}
	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.publisher.Publish(ctx, events.TypePhase, payload); err != nil {
			log.Warn().Err(err).Msg("phase event not published")
		}
	}()
}
