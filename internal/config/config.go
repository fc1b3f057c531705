// Package config resolves the validated game settings from modes, files and overrides.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrUnknownMode is returned by ModeSettings for a mode that is not defined.
var ErrUnknownMode = errors.New("unknown mode")

// Speed is the game speed preset.
type Speed string

const (
	SpeedRelaxed Speed = "relaxed"
	SpeedDefault Speed = "default"
	SpeedFrantic Speed = "frantic"
)

// Settings is the flat, validated configuration for one session.
// It is built once and treated as read-only afterwards.
type Settings struct {
	Mode              string  `yaml:"mode" json:"mode"`
	Sharing           bool    `yaml:"sharing" json:"sharing"`
	ShareQR           bool    `yaml:"share-qr" json:"shareQR"`
	ShareLink         bool    `yaml:"share-link" json:"shareLink"`
	HideCursor        bool    `yaml:"hide-cursor" json:"hideCursor"`
	Timeout           int     `yaml:"timeout" json:"timeout"`
	Speed             Speed   `yaml:"speed" json:"speed"`
	AsteroidGroup     int     `yaml:"asteroid-group" json:"asteroidGroup"`
	OutputStride      int     `yaml:"model-stride" json:"outputStride"`
	Multiplier        float64 `yaml:"multiplier" json:"multiplier"`
	MinPartConfidence float64 `yaml:"min-part-conf" json:"minPartConfidence"`
	MinPoseConfidence float64 `yaml:"min-pose-conf" json:"minPoseConfidence"`
	InputResolution   int     `yaml:"input-res" json:"inputResolution"`
}

// TotalTargets returns the number of targets in one round for the speed preset.
func (s Settings) TotalTargets() int {
	switch s.Speed {
	case SpeedRelaxed:
		return 15
	case SpeedFrantic:
		return 60
	default:
		return 30
	}
}

// ResetDelay returns the inactivity window used by both reset timers.
func (s Settings) ResetDelay() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// Defaults returns the settings of the default mode.
func Defaults() Settings {
	return Settings{
		Mode:              "default",
		Sharing:           true,
		ShareQR:           true,
		ShareLink:         true,
		HideCursor:        false,
		Timeout:           15,
		Speed:             SpeedDefault,
		AsteroidGroup:     0,
		OutputStride:      16,
		Multiplier:        0.5,
		MinPartConfidence: 0.5,
		MinPoseConfidence: 0.5,
		InputResolution:   257,
	}
}

// modes are layered on top of the defaults.
var modes = map[string]map[string]string{
	"default": {},
	"kiosk": {
		"timeout":     "30",
		"hide-cursor": "true",
		"multiplier":  "0.75",
		"input-res":   "417",
	},
	"kiosk-noqr": {
		"sharing":     "false",
		"hide-cursor": "true",
		"multiplier":  "0.75",
		"input-res":   "417",
	},
}

// Modes returns the names of every defined mode.
func Modes() []string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ModeSettings returns the settings for a named mode without overrides.
func ModeSettings(mode string) (Settings, error) {
	layer, ok := modes[mode]
	if !ok {
		return Defaults(), fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	s := Defaults()
	s.Mode = mode
	for key, raw := range layer {
		s.apply(key, raw)
	}
	return s, nil
}

// Resolve builds settings for mode with the given per-key overrides applied.
// An unknown mode falls back to default. Overrides that fail to parse or fall
// outside their allowed values are ignored.
func Resolve(mode string, overrides map[string]string) Settings {
	if mode == "" {
		mode = "default"
	}
	s, err := ModeSettings(mode)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to default mode")
	}

	for key, raw := range overrides {
		if !s.apply(key, raw) {
			log.Warn().Str("key", key).Str("value", raw).Msg("ignoring invalid setting")
		}
	}
	return s
}

// File is the on-disk settings format.
type File struct {
	Mode     string            `yaml:"mode"`
	Settings map[string]string `yaml:"settings"`
}

// Load reads a YAML settings file and resolves it. Extra overrides win over the file.
func Load(path string, extra map[string]string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config: %w", err)
	}

	merged := make(map[string]string, len(f.Settings)+len(extra))
	for k, v := range f.Settings {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}

	mode := f.Mode
	if m, ok := extra["mode"]; ok {
		mode = m
		delete(merged, "mode")
	}
	return Resolve(mode, merged), nil
}

// ErrInvalidSetting is returned by Validate for unknown keys and out-of-range values.
var ErrInvalidSetting = errors.New("invalid setting")

// Validate reports whether key=raw would be accepted as an override.
func Validate(key, raw string) error {
	s := Defaults()
	if !s.apply(key, raw) {
		return fmt.Errorf("%w: %s=%q", ErrInvalidSetting, key, raw)
	}
	return nil
}

// Marshal renders the settings as YAML.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

var (
	validSpeeds      = []Speed{SpeedRelaxed, SpeedDefault, SpeedFrantic}
	validGroups      = []int{0, 1, 2, 3, 4, 5}
	validStrides     = []int{8, 16}
	validMultipliers = []float64{0.5, 0.75, 1}
	validResolutions = []int{161, 193, 257, 289, 321, 353, 385, 417, 449, 481, 513, 801, 1217}
)

// apply sets one key from its string form. It reports whether the value was accepted.
func (s *Settings) apply(key, raw string) bool {
	switch key {
	case "sharing":
		s.Sharing = parseBool(raw)
	case "share-qr":
		s.ShareQR = parseBool(raw)
	case "share-link":
		s.ShareLink = parseBool(raw)
	case "hide-cursor":
		s.HideCursor = parseBool(raw)
	case "timeout":
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return false
		}
		s.Timeout = v
	case "speed":
		if !slices.Contains(validSpeeds, Speed(raw)) {
			return false
		}
		s.Speed = Speed(raw)
	case "asteroid-group":
		return setInt(&s.AsteroidGroup, raw, validGroups)
	case "model-stride":
		return setInt(&s.OutputStride, raw, validStrides)
	case "input-res":
		return setInt(&s.InputResolution, raw, validResolutions)
	case "multiplier":
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || !slices.Contains(validMultipliers, v) {
			return false
		}
		s.Multiplier = v
	case "min-part-conf":
		return setConfidence(&s.MinPartConfidence, raw)
	case "min-pose-conf":
		return setConfidence(&s.MinPoseConfidence, raw)
	default:
		return false
	}
	return true
}

func parseBool(raw string) bool {
	return raw == "true" || raw == "1"
}

func setInt(dst *int, raw string, valid []int) bool {
	v, err := strconv.Atoi(raw)
	if err != nil || !slices.Contains(valid, v) {
		return false
	}
	*dst = v
	return true
}

func setConfidence(dst *float64, raw string) bool {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v > 1 {
		return false
	}
	*dst = v
	return true
}
