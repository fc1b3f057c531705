package session

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TimerKind identifies one of the two reset timers.
type TimerKind int

const (
	IdleReset TimerKind = iota
	CompletionReset
)

func (k TimerKind) String() string {
	switch k {
	case IdleReset:
		return "idle-reset"
	case CompletionReset:
		return "completion-reset"
	}
	return "unknown"
}

// Expiry is queued when a reset timer fires. It is applied by HandleExpiry
// on the processing loop, never from the timer goroutine.
type Expiry struct {
	Kind TimerKind
	gen  uint64
}

// resetSlot holds at most one pending timer. Arming always cancels the
// previous timer first; the generation counter makes late expiries harmless.
type resetSlot struct {
	timer clockwork.Timer
	gen   uint64
}

func (m *Machine) arm(kind TimerKind) {
	slot := &m.slots[kind]
	m.cancel(kind)

	slot.gen++
	e := Expiry{Kind: kind, gen: slot.gen}
	slot.timer = m.clock.AfterFunc(m.opts.ResetDelay, func() {
		select {
		case m.expired <- e:
		case <-m.done:
		}
	})

	log.Debug().Stringer("timer", kind).Dur("delay", m.opts.ResetDelay).Msg("reset timer armed")
}

func (m *Machine) cancel(kind TimerKind) {
	slot := &m.slots[kind]
	if slot.timer == nil {
		return
	}
	slot.timer.Stop()
	slot.timer = nil
	slot.gen++

	log.Debug().Stringer("timer", kind).Msg("reset timer cancelled")
}

func (m *Machine) armed(kind TimerKind) bool {
	return m.slots[kind].timer != nil
}
