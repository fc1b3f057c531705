// Package pose picks the player out of the detected candidates and reads their gestures.
package pose

import (
	"math"

	"github.com/ayusman/poseplay/internal/detector"
)

// Select returns the candidate to trust as the current player, or nil.
//
// A candidate qualifies when its horizontal center lies strictly inside the
// middle third of the frame. Among qualifying candidates the highest overall
// score wins; ties keep the earliest candidate.
func Select(candidates []detector.Pose, frameWidth float64) *detector.Pose {
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		if !IsCentered(HorizontalCenter(&candidates[0]), frameWidth) {
			return nil
		}
		return &candidates[0]
	}

	var best *detector.Pose
	for i := range candidates {
		c := &candidates[i]
		if !IsCentered(HorizontalCenter(c), frameWidth) {
			continue
		}
		if best == nil || c.Score > best.Score {
			best = c
		}
	}
	return best
}

// HorizontalCenter is the mean x of the first left and right shoulder keypoints.
// Shoulder confidence is not consulted. A pose missing either shoulder yields NaN,
// which is never centered.
func HorizontalCenter(p *detector.Pose) float64 {
	left, right := math.NaN(), math.NaN()
	var haveLeft, haveRight bool

	for _, kp := range p.Keypoints {
		switch {
		case kp.Part == detector.LeftShoulder && !haveLeft:
			left, haveLeft = kp.Position.X, true
		case kp.Part == detector.RightShoulder && !haveRight:
			right, haveRight = kp.Position.X, true
		}
	}
	return (left + right) / 2
}

// IsCentered reports whether x lies in the open interval (width/3, width*2/3).
func IsCentered(x, frameWidth float64) bool {
	return x > frameWidth/3 && x < frameWidth*2/3
}
