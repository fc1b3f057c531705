package detector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// ServiceIdleTimeout is how long the inference process may sit unused before it is stopped.
const ServiceIdleTimeout = 30 * time.Second

const serviceScript = "pose_service.py"

// ErrServiceNotFound is returned when the pose service script cannot be located.
var ErrServiceNotFound = errors.New("pose_service.py not found")

// ErrBadResponse is returned when a service reply cannot be parsed.
var ErrBadResponse = errors.New("malformed pose service response")

// ServiceDetector implements Detector using a Python pose estimation subprocess.
//
// Each request is one JSON options line followed by a 4-byte big-endian
// length and the JPEG-encoded frame. The service answers with one JSON line.
type ServiceDetector struct {
	config      Config
	scriptPath  string
	interpreter string
	clock       clockwork.Clock

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	started   bool
	idleTimer clockwork.Timer
}

// NewServiceDetector creates a detector backed by the pose service.
// The Python process is started lazily on first estimate.
func NewServiceDetector(config Config) (*ServiceDetector, error) {
	scriptPath := findServiceScript()
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}

	return &ServiceDetector{
		config:     config,
		scriptPath: scriptPath,
		clock:      clockwork.NewRealClock(),
	}, nil
}

// Estimate sends a frame to the service and returns the decoded poses.
func (d *ServiceDetector) Estimate(ctx context.Context, frame *gocv.Mat, opts Options) ([]Pose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	header, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}

	data := buf.GetBytes()
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	// A cancelled caller kills the process so a hung service cannot block
	// the read below.
	proc := d.cmd.Process
	stop := context.AfterFunc(ctx, func() {
		proc.Kill()
	})
	defer stop()

	fail := func(step string, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return d.restart(fmt.Errorf("%s: %w", step, err))
	}

	if _, err := d.stdin.Write(append(header, '\n')); err != nil {
		return nil, fail("write options", err)
	}
	if _, err := d.stdin.Write(length); err != nil {
		return nil, fail("write length", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fail("write data", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return nil, fail("read response", err)
	}

	poses, err := decodeResponse([]byte(line))
	if errors.Is(err, ErrBadResponse) {
		return nil, d.restart(err)
	}
	if err != nil {
		d.resetIdleTimer()
		return nil, err
	}

	d.resetIdleTimer()
	return poses, nil
}

// Close shuts down the Python process.
func (d *ServiceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *ServiceDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := d.interpreter
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	modelConfig, err := json.Marshal(d.config)
	if err != nil {
		return fmt.Errorf("marshal model config: %w", err)
	}

	d.cmd = exec.Command(pythonPath, d.scriptPath, "--config", string(modelConfig))

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	log.Info().Str("script", d.scriptPath).Str("python", pythonPath).Msg("pose service started")
	return nil
}

// restart drops a process whose stream can no longer be trusted. The next
// Estimate starts a fresh one.
func (d *ServiceDetector) restart(cause error) error {
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	if err := d.shutdown(); err != nil {
		log.Debug().Err(err).Msg("pose service exit status")
	}
	log.Warn().Err(cause).Msg("pose service failed, restarting on next frame")
	return cause
}

func (d *ServiceDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	log.Info().Msg("pose service stopped")
	return err
}

func (d *ServiceDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = d.clock.AfterFunc(ServiceIdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.shutdown(); err != nil {
			log.Debug().Err(err).Msg("pose service exited after idle timeout")
		}
	})
}

type serviceResponse struct {
	Poses []Pose `json:"poses"`
	Error string `json:"error,omitempty"`
}

// decodeResponse parses one response line from the pose service.
func decodeResponse(line []byte) ([]Pose, error) {
	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("pose service: %s", resp.Error)
	}
	if resp.Poses == nil {
		return []Pose{}, nil
	}
	return resp.Poses, nil
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".poseplay", "scripts", serviceScript),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if absPath, err := filepath.Abs(path); err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".poseplay/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if absPath, err := filepath.Abs(path); err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
