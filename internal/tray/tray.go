// Package tray provides a system tray menu for running the PosePlay kiosk.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/poseplay/internal/session"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onOpen   func()
	onReset  func()
	onQuit   func()
	enabled  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuPhase  *systray.MenuItem
}

// New creates a new Tray instance with capture enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback called when capture is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback called when the kiosk page should be opened.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnReset sets the callback called when the operator resets the session.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnQuit sets the callback called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("PosePlay")
	systray.SetTooltip("PosePlay kiosk")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume the camera")
	systray.AddSeparator()

	t.menuPhase = systray.AddMenuItem(PhaseTitle(session.PhaseAttract), "Current session phase")
	t.menuPhase.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Kiosk...", "Open the kiosk page in a browser")
	menuReset := systray.AddMenuItem("Reset Session", "Return to the attract screen")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit PosePlay")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuReset.ClickedCh:
				t.handleReset()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleReset() {
	t.mu.RLock()
	callback := t.onReset
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetPhase updates the phase line in the menu.
func (t *Tray) SetPhase(p session.Phase) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuPhase != nil {
		t.menuPhase.SetTitle(PhaseTitle(p))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// PhaseTitle is the menu label for a phase.
func PhaseTitle(p session.Phase) string {
	switch p {
	case session.PhaseAttract:
		return "Waiting for a player"
	case session.PhaseCalibration:
		return "Calibrating"
	case session.PhaseGame:
		return "Game in progress"
	case session.PhaseShare:
		return "Showing results"
	case session.PhaseNoVideo:
		return "No camera"
	case session.PhaseGenericError:
		return "Error"
	}
	return "Phase: " + string(p)
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}
