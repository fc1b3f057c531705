// Package detector provides the pose estimation gateway and the keypoint types it produces.
package detector

// BodyPart names a skeletal keypoint following the PoseNet convention.
type BodyPart string

// PoseNet body parts in model output order. The nose is always first.
const (
	Nose          BodyPart = "nose"
	LeftEye       BodyPart = "leftEye"
	RightEye      BodyPart = "rightEye"
	LeftEar       BodyPart = "leftEar"
	RightEar      BodyPart = "rightEar"
	LeftShoulder  BodyPart = "leftShoulder"
	RightShoulder BodyPart = "rightShoulder"
	LeftElbow     BodyPart = "leftElbow"
	RightElbow    BodyPart = "rightElbow"
	LeftWrist     BodyPart = "leftWrist"
	RightWrist    BodyPart = "rightWrist"
	LeftHip       BodyPart = "leftHip"
	RightHip      BodyPart = "rightHip"
	LeftKnee      BodyPart = "leftKnee"
	RightKnee     BodyPart = "rightKnee"
	LeftAnkle     BodyPart = "leftAnkle"
	RightAnkle    BodyPart = "rightAnkle"
)

// BodyParts lists every part in model output order.
var BodyParts = [...]BodyPart{
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow,
	LeftWrist, RightWrist, LeftHip, RightHip,
	LeftKnee, RightKnee, LeftAnkle, RightAnkle,
}

// Position is a 2D point in frame pixel coordinates. Y grows downward.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keypoint is a single scored body part location.
type Keypoint struct {
	Part     BodyPart `json:"part"`
	Score    float64  `json:"score"`
	Position Position `json:"position"`
}

// Pose is one detected person for a single inference call.
type Pose struct {
	Keypoints []Keypoint `json:"keypoints"`
	Score     float64    `json:"score"`
}

// Find returns every keypoint for the given part, in keypoint order.
func (p *Pose) Find(part BodyPart) []Keypoint {
	if p == nil {
		return nil
	}

	var found []Keypoint
	for _, kp := range p.Keypoints {
		if kp.Part == part {
			found = append(found, kp)
		}
	}
	return found
}
