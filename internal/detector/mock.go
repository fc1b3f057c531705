package detector

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the estimation results.
type MockDetector struct {
	mu    sync.Mutex
	poses []Pose
	err   error
	calls int
	last  Options
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPoses sets the poses that will be returned by Estimate.
func (m *MockDetector) SetPoses(poses []Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = poses
}

// SetError sets the error that will be returned by Estimate.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Estimate has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastOptions returns the options passed to the most recent Estimate call.
func (m *MockDetector) LastOptions() Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Estimate returns the pre-configured poses or error.
func (m *MockDetector) Estimate(ctx context.Context, frame *gocv.Mat, opts Options) ([]Pose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.last = opts
	if m.err != nil {
		return nil, m.err
	}
	return append([]Pose(nil), m.poses...), nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// StandingPose returns a full-body pose centered at centerX with arms at the sides.
// Every keypoint carries partScore and the pose carries score.
func StandingPose(centerX, score, partScore float64) Pose {
	return buildPose(centerX, score, partScore, 330)
}

// ReadyPose returns a pose centered at centerX with both wrists raised above the nose.
func ReadyPose(centerX, score, partScore float64) Pose {
	return buildPose(centerX, score, partScore, 60)
}

func buildPose(centerX, score, partScore, wristY float64) Pose {
	layout := map[BodyPart]Position{
		Nose:          {X: centerX, Y: 100},
		LeftEye:       {X: centerX - 10, Y: 90},
		RightEye:      {X: centerX + 10, Y: 90},
		LeftEar:       {X: centerX - 20, Y: 95},
		RightEar:      {X: centerX + 20, Y: 95},
		LeftShoulder:  {X: centerX - 40, Y: 160},
		RightShoulder: {X: centerX + 40, Y: 160},
		LeftElbow:     {X: centerX - 55, Y: 230},
		RightElbow:    {X: centerX + 55, Y: 230},
		LeftWrist:     {X: centerX - 60, Y: wristY},
		RightWrist:    {X: centerX + 60, Y: wristY},
		LeftHip:       {X: centerX - 30, Y: 320},
		RightHip:      {X: centerX + 30, Y: 320},
		LeftKnee:      {X: centerX - 30, Y: 400},
		RightKnee:     {X: centerX + 30, Y: 400},
		LeftAnkle:     {X: centerX - 30, Y: 470},
		RightAnkle:    {X: centerX + 30, Y: 470},
	}

	pose := Pose{Score: score, Keypoints: make([]Keypoint, 0, len(BodyParts))}
	for _, part := range BodyParts {
		pose.Keypoints = append(pose.Keypoints, Keypoint{
			Part:     part,
			Score:    partScore,
			Position: layout[part],
		})
	}
	return pose
}
