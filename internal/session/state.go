// Package session holds the application phase machine and its reset timers.
package session

import "github.com/ayusman/poseplay/internal/score"

// Phase is the top-level application mode.
type Phase string

const (
	PhaseAttract      Phase = "attract"
	PhaseCalibration  Phase = "calibration"
	PhaseGame         Phase = "game"
	PhaseShare        Phase = "share"
	PhaseNoVideo      Phase = "no-video"
	PhaseGenericError Phase = "generic-error"
)

// Subphase is the fine-grained state inside PhaseGame.
type Subphase string

const (
	SubphaseInactive  Subphase = "inactive"
	SubphaseCountdown Subphase = "countdown"
	SubphasePlaying   Subphase = "playing"
	SubphaseError     Subphase = "error"
)

// Game clock defaults.
const (
	DefaultCountdown   = 3
	DefaultGameSeconds = 60
)

// State is a snapshot of the session. The Machine owns the live copy.
type State struct {
	SessionID          string      `json:"sessionId,omitempty"`
	Phase              Phase       `json:"phase"`
	Subphase           Subphase    `json:"subphase"`
	HasPerson          bool        `json:"hasPerson"`
	PoseActivated      bool        `json:"poseActivated"`
	Calibrated         bool        `json:"calibrated"`
	GameCompleted      bool        `json:"gameCompleted"`
	NoVideo            bool        `json:"noVideo"`
	ErrorState         bool        `json:"errorState"`
	CountdownRemaining int         `json:"countdownRemaining"`
	GameTimeRemaining  int         `json:"gameTimeRemaining"`
	IdleResetArmed     bool        `json:"idleResetArmed"`
	CompletionArmed    bool        `json:"completionResetArmed"`
	Score              score.State `json:"score"`
}

// Inputs are the per-cycle signals derived from the current pose.
type Inputs struct {
	HasPerson     bool
	PoseActivated bool
	Calibrated    bool
}
