package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ayusman/poseplay/internal/config"
	"github.com/ayusman/poseplay/internal/logging"
	"github.com/ayusman/poseplay/internal/store"
)

// Global flags
var (
	dbFlag       string
	configFlag   string
	modeFlag     string
	setFlags     []string
	logLevelFlag string
)

// rootCmd is the main Cobra command for the poseplay CLI.
var rootCmd = &cobra.Command{
	Use:   "poseplay",
	Short: "Camera-driven pose game kiosk",
	Long: `PosePlay runs an interactive kiosk game driven by body pose.

A player walks up, raises both hands to start, holds still while the camera
calibrates, then dodges targets until the clock or the target budget runs out.

Settings are resolved from the mode, an optional YAML file, values saved with
"poseplay settings set" and finally --set flags, later sources winning.

Examples:
  poseplay serve
  poseplay serve --mode kiosk --set timeout=60
  poseplay serve --camera none      # poses arrive from the browser
  poseplay settings
  poseplay results --best --limit 10`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
		}
		level := logLevelFlag
		if level == "" {
			level = os.Getenv("POSEPLAY_LOG_LEVEL")
		}
		logging.Init(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Path to the SQLite database (default ~/.poseplay/poseplay.db)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "YAML settings file")
	rootCmd.PersistentFlags().StringVarP(&modeFlag, "mode", "m", "", "Settings mode (default, kiosk, kiosk-noqr); overrides POSEPLAY_MODE")
	rootCmd.PersistentFlags().StringArrayVar(&setFlags, "set", nil, "Override a setting as key=value (repeatable)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd, settingsCmd, resultsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// dataDir returns ~/.poseplay, creating it if needed.
func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".poseplay")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

func openStore() (*store.Store, error) {
	path := dbFlag
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "poseplay.db")
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

// parseSets turns repeated key=value flags into a map. Later keys win.
func parseSets(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid setting %q, want key=value", pair)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

// resolveSettings layers stored settings, --set flags and the mode over the
// optional config file.
func resolveSettings(st *store.Store) (config.Settings, error) {
	overrides := map[string]string{}
	if st != nil {
		stored, err := st.Settings().All()
		if err != nil {
			return config.Settings{}, fmt.Errorf("failed to read stored settings: %w", err)
		}
		for k, v := range stored {
			overrides[k] = v
		}
	}

	sets, err := parseSets(setFlags)
	if err != nil {
		return config.Settings{}, err
	}
	for k, v := range sets {
		overrides[k] = v
	}

	mode := modeFlag
	if mode == "" {
		mode = os.Getenv("POSEPLAY_MODE")
	}
	if mode != "" {
		overrides["mode"] = mode
	}

	if configFlag != "" {
		return config.Load(configFlag, overrides)
	}

	mode = overrides["mode"]
	delete(overrides, "mode")
	return config.Resolve(mode, overrides), nil
}

// findDir returns the first existing directory among names relative to the
// working directory, then ~/.poseplay/<name>.
func findDir(name string) string {
	for _, p := range []string{name, filepath.Join("..", name), filepath.Join("..", "..", name)} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".poseplay", name)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	log.Debug().Str("dir", name).Msg("directory not found")
	return ""
}
