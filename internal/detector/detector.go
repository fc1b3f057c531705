package detector

import (
	"context"

	"gocv.io/x/gocv"
)

// Detector defines the interface for pose estimation implementations.
type Detector interface {
	// Estimate runs inference on a video frame and returns every candidate pose.
	// An empty slice means nobody was detected and is not an error.
	// Estimate must return promptly once ctx is done.
	Estimate(ctx context.Context, frame *gocv.Mat, opts Options) ([]Pose, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Options are passed to the model on every call.
type Options struct {
	FlipHorizontal bool    `json:"flipHorizontal"`
	ScoreThreshold float64 `json:"scoreThreshold"`
}

// Config holds model configuration handed to the inference service on start.
type Config struct {
	// OutputStride is 8 or 16. Smaller is more accurate and slower.
	OutputStride int `json:"outputStride"`

	// InputResolution is the model input size in pixels.
	InputResolution int `json:"inputResolution"`

	// Multiplier is the convolution channel multiplier (0.5, 0.75 or 1.0).
	Multiplier float64 `json:"multiplier"`

	// MaxDetections caps the number of poses returned per frame.
	MaxDetections int `json:"maxDetections"`
}

// DefaultConfig returns a Config with the model defaults.
func DefaultConfig() Config {
	return Config{
		OutputStride:    16,
		InputResolution: 257,
		Multiplier:      0.5,
		MaxDetections:   5,
	}
}
