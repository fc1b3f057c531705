package pose

import "github.com/ayusman/poseplay/internal/detector"

// IsActivated reports whether the pose shows the ready gesture: both wrists above the nose.
//
// Wrists and nose must each score at least minPartConfidence. The nose is the
// first keypoint of the pose by model convention.
func IsActivated(p *detector.Pose, minPartConfidence float64) bool {
	if p == nil || len(p.Keypoints) == 0 {
		return false
	}

	wrists := make([]detector.Keypoint, 0, 2)
	for _, kp := range p.Keypoints {
		if (kp.Part == detector.LeftWrist || kp.Part == detector.RightWrist) &&
			kp.Score >= minPartConfidence {
			wrists = append(wrists, kp)
		}
	}
	if len(wrists) < 2 {
		return false
	}

	nose := p.Keypoints[0]
	if nose.Score < minPartConfidence {
		return false
	}

	// Image y grows downward, so a larger nose y means the wrists are higher.
	return nose.Position.Y > wrists[0].Position.Y && nose.Position.Y > wrists[1].Position.Y
}
