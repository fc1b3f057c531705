package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/poseplay/internal/score"
)

// Options configures a Machine.
type Options struct {
	ResetDelay       time.Duration
	TotalTargets     int
	CountdownSeconds int
	GameSeconds      int
	Clock            clockwork.Clock
}

// DefaultOptions returns options for the default game settings.
func DefaultOptions() Options {
	return Options{
		ResetDelay:       15 * time.Second,
		TotalTargets:     30,
		CountdownSeconds: DefaultCountdown,
		GameSeconds:      DefaultGameSeconds,
	}
}

// Machine derives the application phase from per-cycle inputs and owns the
// idle and completion reset timers.
//
// Machine is not safe for concurrent use. It is driven from a single loop
// which must also drain Expired and pass each value to HandleExpiry.
type Machine struct {
	opts  Options
	clock clockwork.Clock
	state State

	slots   [2]resetSlot
	expired chan Expiry
	done    chan struct{}
	stop    sync.Once
}

// New creates a machine in PhaseAttract.
func New(opts Options) *Machine {
	def := DefaultOptions()
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = def.ResetDelay
	}
	if opts.TotalTargets <= 0 {
		opts.TotalTargets = def.TotalTargets
	}
	if opts.CountdownSeconds <= 0 {
		opts.CountdownSeconds = def.CountdownSeconds
	}
	if opts.GameSeconds <= 0 {
		opts.GameSeconds = def.GameSeconds
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	m := &Machine{
		opts:    opts,
		clock:   opts.Clock,
		expired: make(chan Expiry, 2),
		done:    make(chan struct{}),
	}
	m.resetState()
	return m
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	s := m.state
	s.IdleResetArmed = m.armed(IdleReset)
	s.CompletionArmed = m.armed(CompletionReset)
	return s
}

// Expired delivers reset timer expiries.
func (m *Machine) Expired() <-chan Expiry {
	return m.expired
}

// Stop cancels both timers. The machine must not be used afterwards.
func (m *Machine) Stop() {
	m.stop.Do(func() {
		m.cancel(IdleReset)
		m.cancel(CompletionReset)
		close(m.done)
	})
}

// Tick applies one cycle of inputs and re-evaluates the phase.
func (m *Machine) Tick(in Inputs) State {
	m.setHasPerson(in.HasPerson)

	if in.PoseActivated && m.state.HasPerson {
		m.state.PoseActivated = true
	}
	if in.Calibrated {
		m.state.Calibrated = true
	}

	return m.Evaluate()
}

// Evaluate re-applies the phase rules to the current flags without new inputs.
// The first matching rule wins.
func (m *Machine) Evaluate() State {
	s := &m.state
	prev, prevSub := s.Phase, s.Subphase

	switch {
	case s.NoVideo:
		s.Phase = PhaseNoVideo
	case s.ErrorState:
		s.Phase = PhaseGenericError
	case s.Phase == PhaseAttract && s.HasPerson && s.PoseActivated && !s.GameCompleted:
		s.Phase = PhaseCalibration
		s.SessionID = uuid.NewString()
	case s.Phase == PhaseCalibration && s.HasPerson && s.PoseActivated && s.Calibrated && !s.GameCompleted:
		s.Phase = PhaseGame
		s.Subphase = SubphaseCountdown
	case s.Phase == PhaseGame && s.PoseActivated && s.Calibrated && !s.GameCompleted:
		switch {
		case !s.HasPerson:
			s.Subphase = SubphaseError
		case s.CountdownRemaining > 0:
			s.Subphase = SubphaseCountdown
		default:
			s.Subphase = SubphasePlaying
		}
	case s.Phase == PhaseGame && s.HasPerson && s.PoseActivated && s.Calibrated && s.GameCompleted:
		s.Phase = PhaseShare
		s.Subphase = SubphaseInactive
	case s.Phase == PhaseAttract:
		// Nobody has started a session yet; keep the board fresh.
		s.Score = score.New(m.opts.TotalTargets)
		s.CountdownRemaining = m.opts.CountdownSeconds
		s.GameTimeRemaining = m.opts.GameSeconds
	}

	if s.Phase != prev || s.Subphase != prevSub {
		log.Info().
			Str("session", s.SessionID).
			Str("from", string(prev)).
			Str("to", string(s.Phase)).
			Str("subphase", string(s.Subphase)).
			Msg("phase changed")
	}
	return m.State()
}

// HandleExpiry applies a queued timer expiry. Stale expiries from cancelled or
// replaced timers are ignored and reported as false.
func (m *Machine) HandleExpiry(e Expiry) bool {
	if int(e.Kind) < 0 || int(e.Kind) >= len(m.slots) {
		return false
	}
	slot := &m.slots[e.Kind]
	if slot.timer == nil || slot.gen != e.gen {
		return false
	}
	slot.timer = nil

	log.Info().Stringer("timer", e.Kind).Str("session", m.state.SessionID).Msg("session reset")
	m.Reset()
	return true
}

// Reset returns to PhaseAttract, clearing the latched flags and timers.
// The current hasPerson observation and the override flags are kept.
func (m *Machine) Reset() State {
	m.cancel(IdleReset)
	m.cancel(CompletionReset)

	prev := m.state
	m.resetState()
	m.state.HasPerson = prev.HasPerson
	m.state.NoVideo = prev.NoVideo
	m.state.ErrorState = prev.ErrorState
	return m.Evaluate()
}

func (m *Machine) resetState() {
	m.state = State{
		Phase:              PhaseAttract,
		Subphase:           SubphaseInactive,
		CountdownRemaining: m.opts.CountdownSeconds,
		GameTimeRemaining:  m.opts.GameSeconds,
		Score:              score.New(m.opts.TotalTargets),
	}
}

func (m *Machine) setHasPerson(present bool) {
	if present == m.state.HasPerson {
		return
	}
	m.state.HasPerson = present

	if present {
		m.cancel(IdleReset)
		return
	}
	if !m.state.GameCompleted {
		m.arm(IdleReset)
	}
}

// SetGameCompleted marks the game as over and arms the completion timer.
func (m *Machine) SetGameCompleted(done bool) State {
	if done == m.state.GameCompleted {
		return m.State()
	}
	m.state.GameCompleted = done

	if done {
		m.cancel(IdleReset)
		m.arm(CompletionReset)
		log.Info().
			Str("session", m.state.SessionID).
			Float64("score", m.state.Score.Score).
			Str("rank", string(m.state.Score.Rank)).
			Msg("game completed")
	} else {
		m.cancel(CompletionReset)
	}
	return m.Evaluate()
}

// Playing reports whether targets are live.
func (m *Machine) Playing() bool {
	return m.state.Phase == PhaseGame && m.state.Subphase == SubphasePlaying && !m.state.GameCompleted
}

// RecordOutcome applies a target outcome. Outcomes outside active play are
// dropped and reported as false.
func (m *Machine) RecordOutcome(o score.Outcome) bool {
	if !m.Playing() {
		return false
	}
	m.state.Score = score.RecordEvent(m.state.Score, o)
	if m.state.Score.Completed() {
		m.SetGameCompleted(true)
	}
	return true
}

// Step advances the game clock by one second: first the countdown, then the
// play timer. It reports whether anything changed.
func (m *Machine) Step() bool {
	s := &m.state
	if s.Phase != PhaseGame || s.GameCompleted || !s.HasPerson {
		return false
	}

	switch {
	case s.CountdownRemaining > 0:
		s.CountdownRemaining--
		m.Evaluate()
	case s.Subphase == SubphasePlaying && s.GameTimeRemaining > 0:
		s.GameTimeRemaining--
		if s.GameTimeRemaining == 0 {
			m.SetGameCompleted(true)
		}
	default:
		return false
	}
	return true
}

// SetNoVideo raises or clears the no-video override. Clearing it starts over
// from PhaseAttract.
func (m *Machine) SetNoVideo(v bool) State {
	if v == m.state.NoVideo {
		return m.State()
	}
	if v {
		m.state.NoVideo = true
		return m.Evaluate()
	}
	m.state.NoVideo = false
	return m.Reset()
}

// SetError raises or clears the generic error override. Clearing it starts
// over from PhaseAttract.
func (m *Machine) SetError(v bool) State {
	if v == m.state.ErrorState {
		return m.State()
	}
	if v {
		m.state.ErrorState = true
		return m.Evaluate()
	}
	m.state.ErrorState = false
	return m.Reset()
}
