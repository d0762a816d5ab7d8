package decoder

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/Iron-Ham/invscan/internal/errors"
	"github.com/Iron-Ham/invscan/internal/logging"
)

// Device is a Capability for handheld scanners that present as a serial or
// HID character device, or that are bridged through a FIFO. The scanner does
// its own decoding; each newline-terminated line is a payload.
type Device struct {
	path   string
	logger *logging.Logger
}

// NewDevice creates a Device capability reading from path.
func NewDevice(path string, logger *logging.Logger) *Device {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Device{path: path, logger: logger.WithComponent("decoder")}
}

// Attach binds a handle. A named video surface overrides the configured path.
// Preview options do not apply to this driver.
func (d *Device) Attach(video Surface, onDecoded func(Result), opts Options) (Handle, error) {
	path := video.Name
	if path == "" {
		path = d.path
	}
	if path == "" {
		return nil, errors.NewCameraUnavailableError("", fmt.Errorf("%w: no scanner device configured", errors.ErrDeviceUnavailable))
	}

	h := &deviceHandle{
		path:   path,
		logger: d.logger.With("device", path),
		onFail: opts.OnFailure,
		done:   make(chan struct{}),
	}
	h.pump = linePump{
		onDecoded:     onDecoded,
		onDecodeError: opts.OnDecodeError,
		stopped:       &h.stopped,
	}
	return h, nil
}

type deviceHandle struct {
	path   string
	logger *logging.Logger
	onFail func(error)

	pump    linePump
	stopped atomic.Bool

	mu       sync.Mutex
	file     *os.File
	done     chan struct{}
	stopOnce sync.Once
}

// Start opens the device and begins reading. Reads on character devices and
// FIFOs go through the runtime poller, so closing the file unblocks them.
func (h *deviceHandle) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped.Load() {
		return errors.ErrDecoderStopped
	}
	if h.file != nil {
		return nil
	}

	// A FIFO is opened read-write so the reader never sees EOF while the
	// bridge feeding it restarts.
	mode := os.O_RDONLY
	if info, err := os.Stat(h.path); err == nil && info.Mode()&os.ModeNamedPipe != 0 {
		mode = os.O_RDWR
	}
	f, err := os.OpenFile(h.path, mode|syscall.O_NONBLOCK|syscall.O_NOCTTY, 0)
	if err != nil {
		return classifyOpenError(h.path, err)
	}
	h.file = f
	h.logger.Info("scanner device opened")

	go func() {
		defer close(h.done)
		err := h.pump.run(f)
		if err == nil || h.stopped.Load() {
			return
		}
		h.logger.Warn("scanner device read failed", "error", err)
		if h.onFail != nil {
			h.onFail(errors.NewCameraUnavailableError(h.path, fmt.Errorf("%w: %v", errors.ErrDeviceUnavailable, err)))
		}
	}()
	return nil
}

// Stop closes the device and waits for the reader goroutine.
func (h *deviceHandle) Stop() error {
	var closeErr error
	h.stopOnce.Do(func() {
		h.stopped.Store(true)

		h.mu.Lock()
		f := h.file
		h.mu.Unlock()
		if f == nil {
			return
		}
		closeErr = f.Close()

		select {
		case <-h.done:
			h.logger.Info("scanner device closed")
		case <-time.After(stopTimeout):
			h.logger.Warn("scanner device stop timeout exceeded")
		}
	})
	if closeErr != nil {
		return errors.Wrap(closeErr, "close scanner device")
	}
	return nil
}
