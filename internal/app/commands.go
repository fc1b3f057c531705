package app

import (
	"context"

	"github.com/ayusman/poseplay/internal/detector"
	"github.com/ayusman/poseplay/internal/score"
	"github.com/ayusman/poseplay/internal/session"
)

// do runs fn on the loop goroutine and waits for its result.
func (a *App) do(ctx context.Context, fn func() error) error {
	a.mu.RLock()
	stopCh, done := a.stopCh, a.done
	a.mu.RUnlock()
	if stopCh == nil {
		return ErrStopped
	}

	errc := make(chan error, 1)
	select {
	case a.commands <- func() { errc <- fn() }:
	case <-done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutate runs fn against the machine on the loop and publishes the result.
func (a *App) mutate(ctx context.Context, fn func(m *session.Machine) error) (Snapshot, error) {
	err := a.do(ctx, func() error {
		prev := a.machine.State()
		if err := fn(a.machine); err != nil {
			return err
		}
		a.afterChange(prev)
		return nil
	})
	return a.Snapshot(), err
}

// RecordOutcome applies a target outcome reported by the game UI.
func (a *App) RecordOutcome(ctx context.Context, o score.Outcome) (Snapshot, error) {
	return a.mutate(ctx, func(m *session.Machine) error {
		if !m.RecordOutcome(o) {
			return ErrNotPlaying
		}
		return nil
	})
}

// MarkCalibrated confirms calibration from the UI.
func (a *App) MarkCalibrated(ctx context.Context) (Snapshot, error) {
	return a.mutate(ctx, func(m *session.Machine) error {
		s := m.State()
		if s.Phase != session.PhaseCalibration {
			return ErrNotCalibrating
		}
		m.Tick(session.Inputs{HasPerson: s.HasPerson, Calibrated: true})
		return nil
	})
}

// SetVideoAvailable raises or clears the no-video override.
func (a *App) SetVideoAvailable(ctx context.Context, available bool) (Snapshot, error) {
	return a.mutate(ctx, func(m *session.Machine) error {
		m.SetNoVideo(!available)
		return nil
	})
}

// SetError raises or clears the generic error override.
func (a *App) SetError(ctx context.Context, active bool) (Snapshot, error) {
	return a.mutate(ctx, func(m *session.Machine) error {
		m.SetError(active)
		return nil
	})
}

// Reset abandons the current session.
func (a *App) Reset(ctx context.Context) (Snapshot, error) {
	return a.mutate(ctx, func(m *session.Machine) error {
		m.Reset()
		return nil
	})
}

// Observe feeds candidate poses produced outside the app, such as by
// in-browser inference. They go through the same path as camera results.
func (a *App) Observe(ctx context.Context, poses []detector.Pose, frameWidth float64) (Snapshot, error) {
	err := a.do(ctx, func() error {
		a.seq++
		a.applyInference(inference{seq: a.seq, poses: poses, frameWidth: frameWidth})
		return nil
	})
	return a.Snapshot(), err
}
