package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame differencing parameters.
const (
	wakeBlurSize      = 21
	wakeDiffThreshold = 25
)

// DefaultWakeThreshold is the percentage of changed pixels that counts as motion.
const DefaultWakeThreshold = 1.0

// DefaultMaxQuietFrames bounds how many frames the gate may skip in a row.
const DefaultMaxQuietFrames = 10

// WakeGate decides whether an empty scene is worth sending to pose inference.
// A frame passes when enough pixels changed since the previous frame, or when
// MaxQuiet consecutive frames were held back, so a player who walked in and
// stopped still gets noticed.
type WakeGate struct {
	threshold float64
	maxQuiet  int

	mu          sync.Mutex
	prev        gocv.Mat
	initialized bool
	quiet       int
}

// NewWakeGate creates a gate. Non-positive arguments take the defaults.
func NewWakeGate(threshold float64, maxQuiet int) *WakeGate {
	if threshold <= 0 {
		threshold = DefaultWakeThreshold
	}
	if maxQuiet <= 0 {
		maxQuiet = DefaultMaxQuietFrames
	}
	return &WakeGate{
		threshold: threshold,
		maxQuiet:  maxQuiet,
		prev:      gocv.NewMat(),
	}
}

// Pass reports whether frame should be inferred on.
func (g *WakeGate) Pass(frame *gocv.Mat) bool {
	moved, _ := g.Changed(frame)

	g.mu.Lock()
	defer g.mu.Unlock()

	if moved || g.quiet >= g.maxQuiet {
		g.quiet = 0
		return true
	}
	g.quiet++
	return false
}

// Changed compares frame with the previous one and returns whether the
// changed-pixel percentage is above the threshold. The first frame only sets
// the baseline.
func (g *WakeGate) Changed(frame *gocv.Mat) (bool, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: wakeBlurSize, Y: wakeBlurSize}, 0, 0, gocv.BorderDefault)

	if !g.initialized || blurred.Rows() != g.prev.Rows() || blurred.Cols() != g.prev.Cols() {
		blurred.CopyTo(&g.prev)
		g.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, g.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, wakeDiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100.0
	blurred.CopyTo(&g.prev)

	return changed > g.threshold, changed
}

// Reset drops the baseline and the quiet counter.
func (g *WakeGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release()
}

// Close releases the baseline frame.
func (g *WakeGate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release()
}

func (g *WakeGate) release() {
	if !g.prev.Empty() {
		g.prev.Close()
		g.prev = gocv.NewMat()
	}
	g.initialized = false
	g.quiet = 0
}
