package decoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/invscan/internal/errors"
	"github.com/Iron-Ham/invscan/internal/logging"
)

// DefaultGracefulStopTimeout is how long a decoder program gets to exit after
// an interrupt before it is killed.
const DefaultGracefulStopTimeout = 500 * time.Millisecond

// stopTimeout bounds how long Stop waits for the reader goroutine.
const stopTimeout = 3 * time.Second

// stderrTail is how much decoder stderr is kept for classifying early exits.
const stderrTail = 4096

const (
	phaseStarting int32 = iota
	phaseRunning
	phaseExited
)

// ProcessConfig configures a camera decoding program such as zbarcam.
type ProcessConfig struct {
	// Command is the program to run (default "zbarcam").
	Command string
	// Args are appended after the built-in flags and before the device.
	Args []string
	// Cameras maps a facing ("environment", "user") to a video device.
	Cameras map[string]string
	// StartupGrace is how long the program must stay up before Start
	// reports success.
	StartupGrace time.Duration
	// Preview enables the program's preview window when an overlay is given.
	Preview bool
}

// Process is a Capability backed by an external decoding program that prints
// one payload per stdout line.
type Process struct {
	cfg    ProcessConfig
	logger *logging.Logger
}

// NewProcess creates a Process capability.
func NewProcess(cfg ProcessConfig, logger *logging.Logger) *Process {
	if cfg.Command == "" {
		cfg.Command = "zbarcam"
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Process{cfg: cfg, logger: logger.WithComponent("decoder")}
}

// Attach binds a handle to the video device. The program is not spawned
// until Start.
func (p *Process) Attach(video Surface, onDecoded func(Result), opts Options) (Handle, error) {
	device := video.Name
	if device == "" {
		device = p.cameraFor(opts.PreferredCamera)
	}
	if device == "" {
		return nil, errors.NewCameraUnavailableError("", fmt.Errorf("%w: no camera configured", errors.ErrDeviceUnavailable))
	}

	h := &processHandle{
		command: p.cfg.Command,
		args:    p.args(device, opts),
		device:  device,
		grace:   p.cfg.StartupGrace,
		onFail:  opts.OnFailure,
		logger:  p.logger.With("device", device),
		done:    make(chan struct{}),
		stderr:  &tailBuffer{limit: stderrTail},
	}
	h.pump = linePump{
		onDecoded:     onDecoded,
		onDecodeError: opts.OnDecodeError,
		stopped:       &h.stopped,
	}
	h.logger.Debug("decoder attached",
		"command", h.command,
		"args", h.args,
		"highlight_region", opts.HighlightRegion,
		"highlight_outline", opts.HighlightOutline,
	)
	return h, nil
}

// cameraFor picks the device for a facing, falling back to the environment
// camera and then to any configured camera.
func (p *Process) cameraFor(facing string) string {
	if dev := p.cfg.Cameras[facing]; dev != "" {
		return dev
	}
	if dev := p.cfg.Cameras["environment"]; dev != "" {
		return dev
	}
	keys := make([]string, 0, len(p.cfg.Cameras))
	for k, dev := range p.cfg.Cameras {
		if dev != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return p.cfg.Cameras[keys[0]]
}

func (p *Process) args(device string, opts Options) []string {
	args := []string{"--raw"}
	if opts.Overlay == nil || !p.cfg.Preview {
		args = append(args, "--nodisplay")
	}
	args = append(args, p.cfg.Args...)
	return append(args, device)
}

type processHandle struct {
	command string
	args    []string
	device  string
	grace   time.Duration
	logger  *logging.Logger
	onFail  func(error)

	pump    linePump
	stopped atomic.Bool
	// phase decides whether an exit is reported by Start or by onFail.
	phase atomic.Int32

	mu       sync.Mutex
	cmd      *exec.Cmd
	cancel   context.CancelFunc
	done     chan struct{}
	exitErr  error
	stderr   *tailBuffer
	stopOnce sync.Once
}

// Start probes the device, spawns the program and waits out the startup
// grace window. An exit inside the window is classified from stderr.
func (h *processHandle) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.stopped.Load() {
		h.mu.Unlock()
		return errors.ErrDecoderStopped
	}
	if h.cmd != nil {
		h.mu.Unlock()
		return nil
	}
	if err := probeDevice(h.device); err != nil {
		h.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, h.command, h.args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = DefaultGracefulStopTimeout
	cmd.Stderr = h.stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		h.mu.Unlock()
		return errors.Wrap(err, "decoder stdout")
	}
	if err := cmd.Start(); err != nil {
		cancel()
		h.mu.Unlock()
		return errors.NewCameraUnavailableError(h.device, fmt.Errorf("%w: start %s: %v", errors.ErrDeviceUnavailable, h.command, err))
	}
	h.cmd, h.cancel = cmd, cancel
	h.mu.Unlock()

	h.logger.Info("decoder started", "pid", cmd.Process.Pid)

	go func() {
		readErr := h.pump.run(stdout)
		waitErr := cmd.Wait()
		if readErr != nil && !h.stopped.Load() {
			h.logger.Warn("decoder output read failed", "error", readErr)
		}
		h.exitErr = waitErr
		if !h.stopped.Load() {
			h.logger.Warn("decoder exited", "error", waitErr, "stderr", h.stderr.String())
		}
		// Start reports exits inside the grace window; later ones go to onFail.
		// onFail runs before done closes so Stop never returns ahead of it.
		exitedEarly := h.phase.CompareAndSwap(phaseStarting, phaseExited)
		if !exitedEarly && !h.stopped.Load() && h.onFail != nil {
			h.onFail(classifyExit(h.device, waitErr, h.stderr.String()))
		}
		close(h.done)
	}()

	timer := time.NewTimer(h.grace)
	defer timer.Stop()

	select {
	case <-h.done:
		if h.stopped.Load() {
			return errors.ErrDecoderStopped
		}
		return classifyExit(h.device, h.exitErr, h.stderr.String())
	case <-timer.C:
		if !h.phase.CompareAndSwap(phaseStarting, phaseRunning) {
			// Exited as the window closed.
			<-h.done
			return classifyExit(h.device, h.exitErr, h.stderr.String())
		}
		return nil
	case <-ctx.Done():
		_ = h.Stop()
		return ctx.Err()
	}
}

// Stop interrupts the program and waits for its output to drain.
func (h *processHandle) Stop() error {
	h.stopOnce.Do(func() {
		h.stopped.Store(true)

		h.mu.Lock()
		cancel := h.cancel
		h.mu.Unlock()
		if cancel == nil {
			return
		}
		cancel()

		select {
		case <-h.done:
			h.logger.Info("decoder stopped")
		case <-time.After(stopTimeout):
			h.logger.Warn("decoder stop timeout exceeded")
		}
	})
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
