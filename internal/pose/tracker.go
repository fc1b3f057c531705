package pose

import "github.com/ayusman/poseplay/internal/detector"

// Tracker owns the current pose across inference cycles.
//
// Results are stamped with a sequence number when the inference is issued.
// A result is applied only if its sequence is newer than the last applied one,
// so a slow call can never overwrite a fresher pose.
type Tracker struct {
	minPoseConfidence float64
	current           *detector.Pose
	lastSeq           uint64
	applied           bool
}

// NewTracker creates a Tracker that only trusts poses scoring above minPoseConfidence.
func NewTracker(minPoseConfidence float64) *Tracker {
	return &Tracker{minPoseConfidence: minPoseConfidence}
}

// Apply selects the current pose from one inference result.
// It returns false when the result was stale and discarded.
func (t *Tracker) Apply(seq uint64, candidates []detector.Pose, frameWidth float64) bool {
	if t.applied && seq <= t.lastSeq {
		return false
	}
	t.lastSeq = seq
	t.applied = true

	selected := Select(candidates, frameWidth)
	if selected == nil || selected.Score <= t.minPoseConfidence {
		t.current = nil
		return true
	}

	p := *selected
	p.Keypoints = append([]detector.Keypoint(nil), selected.Keypoints...)
	t.current = &p
	return true
}

// Current returns the trusted pose, or nil when nobody qualifies.
func (t *Tracker) Current() *detector.Pose {
	return t.current
}

// HasPerson reports whether a current pose exists.
func (t *Tracker) HasPerson() bool {
	return t.current != nil
}

// LastSeq returns the sequence number of the last applied result.
func (t *Tracker) LastSeq() uint64 {
	return t.lastSeq
}
