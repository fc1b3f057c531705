package app

import (
	"github.com/ayusman/poseplay/internal/session"
)

// Display is the subset of settings the kiosk UI needs.
type Display struct {
	HideCursor bool `json:"hideCursor"`
	Sharing    bool `json:"sharing"`
	ShareQR    bool `json:"shareQR"`
	ShareLink  bool `json:"shareLink"`
}

// Snapshot is the externally visible application state.
type Snapshot struct {
	session.State
	Enabled  bool    `json:"enabled"`
	ResultID string  `json:"resultId,omitempty"`
	ShareURL string  `json:"shareUrl,omitempty"`
	Display  Display `json:"display"`
}

// Snapshot returns the latest published state.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Subscribe returns a channel that receives the current snapshot and then
// every change. Slow readers only see the most recent snapshot. Call the
// returned function to unsubscribe.
func (a *App) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	a.mu.Lock()
	ch <- a.snapshot
	a.subs[ch] = struct{}{}
	a.mu.Unlock()

	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, ok := a.subs[ch]; ok {
			delete(a.subs, ch)
			close(ch)
		}
	}
}

// LatestFrame returns the most recent JPEG preview frame, or nil.
func (a *App) LatestFrame() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frame
}

func (a *App) buildSnapshot() Snapshot {
	s := a.settings
	return Snapshot{
		State:    a.machine.State(),
		Enabled:  a.enabled,
		ResultID: a.resultID,
		ShareURL: a.shareURL,
		Display: Display{
			HideCursor: s.HideCursor,
			Sharing:    s.Sharing,
			ShareQR:    s.ShareQR,
			ShareLink:  s.ShareLink,
		},
	}
}

// publishSnapshot must be called from the loop goroutine.
func (a *App) publishSnapshot() {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := a.buildSnapshot()
	if snap == a.snapshot {
		return
	}
	a.broadcastLocked(snap)
}

func (a *App) broadcastLocked(snap Snapshot) {
	a.snapshot = snap
	for ch := range a.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
