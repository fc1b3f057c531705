package pose

import "github.com/ayusman/poseplay/internal/detector"

// DefaultCalibrationFrames is the number of consecutive cycles a player must be fully visible.
const DefaultCalibrationFrames = 10

var calibrationParts = []detector.BodyPart{
	detector.LeftShoulder,
	detector.RightShoulder,
	detector.LeftWrist,
	detector.RightWrist,
}

// Calibrator decides when the player is framed well enough to start the game.
// Once calibrated it stays calibrated until Reset.
type Calibrator struct {
	required          int
	minPartConfidence float64
	streak            int
	done              bool
	shoulderY         float64
}

// NewCalibrator creates a Calibrator. Values of requiredFrames below 1 use the default.
func NewCalibrator(requiredFrames int, minPartConfidence float64) *Calibrator {
	if requiredFrames < 1 {
		requiredFrames = DefaultCalibrationFrames
	}
	return &Calibrator{
		required:          requiredFrames,
		minPartConfidence: minPartConfidence,
	}
}

// Observe feeds the current pose for one cycle and reports whether calibration is complete.
func (c *Calibrator) Observe(p *detector.Pose) bool {
	if c.done {
		return true
	}
	if p == nil || !c.fullyVisible(p) {
		c.streak = 0
		return false
	}

	c.streak++
	if c.streak >= c.required {
		c.done = true
		c.shoulderY = shoulderLine(p)
	}
	return c.done
}

// Calibrated reports whether calibration has completed.
func (c *Calibrator) Calibrated() bool {
	return c.done
}

// ShoulderY returns the shoulder height captured when calibration completed.
// Gameplay zones are laid out relative to it.
func (c *Calibrator) ShoulderY() float64 {
	return c.shoulderY
}

// Reset discards any progress.
func (c *Calibrator) Reset() {
	c.streak = 0
	c.done = false
	c.shoulderY = 0
}

func (c *Calibrator) fullyVisible(p *detector.Pose) bool {
	for _, part := range calibrationParts {
		visible := false
		for _, kp := range p.Find(part) {
			if kp.Score >= c.minPartConfidence {
				visible = true
				break
			}
		}
		if !visible {
			return false
		}
	}
	return true
}

func shoulderLine(p *detector.Pose) float64 {
	var sum float64
	var n int
	for _, part := range []detector.BodyPart{detector.LeftShoulder, detector.RightShoulder} {
		for _, kp := range p.Find(part) {
			sum += kp.Position.Y
			n++
			break
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
