package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/Iron-Ham/invscan/internal/decoder"
	"github.com/Iron-Ham/invscan/internal/logging"
)

// defaultNoiseLogInterval is the minimum spacing of sampled decode-miss logs.
const defaultNoiseLogInterval = 5 * time.Second

// ScannerOptions configure the decoder binding.
type ScannerOptions struct {
	PreferredCamera  string
	HighlightRegion  bool
	HighlightOutline bool
	// Filter rejects payloads that match no accept pattern. Nil accepts all.
	Filter *decoder.Filter
	// NoiseLogInterval spaces debug logs for decode misses.
	NoiseLogInterval time.Duration
}

// Scanner owns at most one decoder attachment. Attach and Detach must be
// called from the event loop; decoder callbacks arrive on other goroutines
// and only ever touch the attachment's channel.
type Scanner struct {
	capability decoder.Capability
	opts       ScannerOptions
	logger     *logging.Logger

	noiseLimiter *rate.Limiter
	noise        atomic.Uint64

	generation uint64
	current    *attachment
}

// attachment is one Scanning-stage binding of the decoder.
type attachment struct {
	id      uint64
	handle  decoder.Handle
	decoded chan string
	failed  chan error
	done    chan struct{}
	cancel  context.CancelFunc

	releaseOnce sync.Once
}

// NewScanner creates a Scanner over capability.
func NewScanner(capability decoder.Capability, opts ScannerOptions, logger *logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if opts.PreferredCamera == "" {
		opts.PreferredCamera = "environment"
	}
	interval := opts.NoiseLogInterval
	if interval <= 0 {
		interval = defaultNoiseLogInterval
	}
	return &Scanner{
		capability:   capability,
		opts:         opts,
		logger:       logger.WithComponent("scanner"),
		noiseLimiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Attached reports whether a decoder is bound.
func (s *Scanner) Attached() bool {
	return s.current != nil
}

// Current returns the attach generation of the live binding, or 0.
func (s *Scanner) Current() uint64 {
	if s.current == nil {
		return 0
	}
	return s.current.id
}

// Misses returns the number of decode misses seen since the Scanner was created.
func (s *Scanner) Misses() uint64 {
	return s.noise.Load()
}

// Attach binds the decoder to video and starts it. The returned command
// produces a CameraStartedMsg and then DecodedMsgs for this attachment, or a
// CameraLostMsg if the decoder stops on its own.
// Attaching while attached is a no-op and returns nil.
func (s *Scanner) Attach(video decoder.Surface, overlay *decoder.Surface) tea.Cmd {
	if s.current != nil {
		return nil
	}

	s.generation++
	a := &attachment{
		id:      s.generation,
		decoded: make(chan string, 1),
		failed:  make(chan error, 1),
		done:    make(chan struct{}),
	}
	s.current = a

	handle, err := s.capability.Attach(video, s.onDecoded(a), decoder.Options{
		PreferredCamera:  s.opts.PreferredCamera,
		HighlightRegion:  s.opts.HighlightRegion,
		HighlightOutline: s.opts.HighlightOutline,
		Overlay:          overlay,
		OnDecodeError:    s.onDecodeError,
		OnFailure:        a.onFailure,
	})
	if err != nil {
		s.logger.Warn("decoder attach failed", "attach", a.id, "error", err)
		id := a.id
		return func() tea.Msg { return CameraStartedMsg{Attach: id, Err: err} }
	}
	a.handle = handle

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	s.logger.Info("decoder attached", "attach", a.id, "video", video.Name)

	id := a.id
	start := func() tea.Msg {
		return CameraStartedMsg{Attach: id, Err: handle.Start(ctx)}
	}
	return tea.Batch(start, a.listen())
}

// Listen re-arms the decode listener for the current attachment.
func (s *Scanner) Listen() tea.Cmd {
	if s.current == nil {
		return nil
	}
	return s.current.listen()
}

// Detach stops and releases the decoder. It is idempotent and safe when
// never attached.
func (s *Scanner) Detach() {
	a := s.current
	if a == nil {
		return
	}
	s.current = nil
	a.release(s.logger)
}

// onDecoded converts decoder callbacks into channel sends. At most one
// payload is held; extras and anything after release are dropped.
func (s *Scanner) onDecoded(a *attachment) func(decoder.Result) {
	return func(r decoder.Result) {
		if !s.opts.Filter.Accept(r.Data) {
			s.onDecodeError(&decoder.NoiseError{Line: r.Data, Reason: "payload rejected by accept patterns"})
			return
		}
		select {
		case <-a.done:
			return
		default:
		}
		select {
		case a.decoded <- r.Data:
		default:
		}
	}
}

// onDecodeError counts per-frame misses. They never reach session state.
func (s *Scanner) onDecodeError(err error) {
	n := s.noise.Add(1)
	if s.noiseLimiter.Allow() {
		s.logger.Debug("decode miss", "error", err, "misses", n)
	}
}

// onFailure records a decoder that stopped on its own. Only the first
// failure is kept.
func (a *attachment) onFailure(err error) {
	select {
	case <-a.done:
		return
	default:
	}
	select {
	case a.failed <- err:
	default:
	}
}

// listen delivers a held payload ahead of a failure.
func (a *attachment) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case v := <-a.decoded:
			return DecodedMsg{Attach: a.id, Value: v}
		default:
		}
		select {
		case v := <-a.decoded:
			return DecodedMsg{Attach: a.id, Value: v}
		case err := <-a.failed:
			return CameraLostMsg{Attach: a.id, Err: err}
		case <-a.done:
			return nil
		}
	}
}

// release cancels a pending start and stops the handle exactly once.
func (a *attachment) release(logger *logging.Logger) {
	a.releaseOnce.Do(func() {
		close(a.done)
		if a.cancel != nil {
			a.cancel()
		}
		if a.handle == nil {
			return
		}
		if err := a.handle.Stop(); err != nil {
			logger.Warn("decoder stop failed", "attach", a.id, "error", err)
		}
		a.handle = nil
		logger.Info("decoder detached", "attach", a.id)
	})
}
