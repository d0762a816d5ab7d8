package capture

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/Iron-Ham/invscan/internal/decoder"
	"github.com/Iron-Ham/invscan/internal/errors"
	"github.com/Iron-Ham/invscan/internal/logging"
	"github.com/Iron-Ham/invscan/internal/submit"
	"github.com/Iron-Ham/invscan/internal/util"
)

// Options configure a Session.
type Options struct {
	Capability decoder.Capability
	Client     submit.Client

	// Video is the surface the decoder binds to. An empty name lets the
	// driver pick a device from PreferredCamera.
	Video decoder.Surface
	// Overlay is the optional preview surface. Nil disables the preview.
	Overlay *decoder.Surface
	Scanner ScannerOptions

	SubmitTimeout  time.Duration
	SuccessDisplay time.Duration

	Logger *logging.Logger
	// NewID generates the session ID. Defaults to uuid.NewString.
	NewID func() string
}

// Session is one operator's capture workflow. Its methods must be called
// from a single goroutine (the bubbletea event loop); asynchronous results
// come back through Update.
type Session struct {
	id      string
	state   State
	epoch   uint64
	closed  bool
	video   decoder.Surface
	overlay *decoder.Surface

	scanner *Scanner
	gateway *Gateway
	logger  *logging.Logger
}

// New creates a Session in StageIdentifyWorker.
func New(opts Options) *Session {
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	id := newID()
	logger = logger.WithSession(id)

	s := &Session{
		id:      id,
		state:   initialState(),
		epoch:   1,
		video:   opts.Video,
		overlay: opts.Overlay,
		logger:  logger,
	}
	s.scanner = NewScanner(opts.Capability, opts.Scanner, logger)
	s.gateway = newGateway(s, opts.Client, opts.SubmitTimeout, opts.SuccessDisplay, logger)
	s.logger.Info("capture session created")
	return s
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// State returns a copy of the current state.
func (s *Session) State() State {
	return s.state.clone()
}

// Scanner exposes the decoder binding for inspection.
func (s *Session) Scanner() *Scanner {
	return s.scanner
}

// EditWorkerID updates the draft worker ID and clears its error.
func (s *Session) EditWorkerID(v string) {
	if s.state.Stage != StageIdentifyWorker {
		return
	}
	s.state.WorkerID = v
	delete(s.state.FieldErrors, FieldWorkerID)
}

// EditQuantity updates the draft quantity and clears its error. Edits are
// ignored while a submission is pending.
func (s *Session) EditQuantity(v string) {
	if s.state.Stage != StageAwaitingQuantity || s.state.Submission.Status == SubmissionPending {
		return
	}
	s.state.Quantity = v
	delete(s.state.FieldErrors, FieldQuantity)
}

// SubmitIdentify fixes the worker ID and moves to scanning. The returned
// command starts the decoder.
func (s *Session) SubmitIdentify(workerID string) (tea.Cmd, error) {
	if s.closed {
		return nil, errors.Wrap(errors.ErrInvalidTransition, "session closed")
	}
	if s.state.Stage != StageIdentifyWorker {
		return nil, errors.Wrapf(errors.ErrInvalidTransition, "identify from %s", s.state.Stage)
	}

	s.state.WorkerID = workerID
	if util.IsBlank(workerID) {
		s.state.FieldErrors[FieldWorkerID] = MsgWorkerIDRequired
		return nil, errors.NewValidationError(MsgWorkerIDRequired).WithField(string(FieldWorkerID))
	}

	s.state.WorkerID = strings.TrimSpace(workerID)
	delete(s.state.FieldErrors, FieldWorkerID)
	s.setStage(StageScanning)
	s.state.Camera = Camera{Status: CameraStarting, Message: MsgCameraStarting}

	return s.scanner.Attach(s.video, s.overlay), nil
}

// ReceiveDecodedValue records a scanned code and moves to quantity entry.
// It is ignored outside StageScanning, so only the first code counts.
func (s *Session) ReceiveDecodedValue(v string) {
	if s.state.Stage != StageScanning || util.IsBlank(v) {
		return
	}

	s.state.ScannedValue = v
	delete(s.state.FieldErrors, FieldScannedValue)
	s.scanner.Detach()
	s.state.Camera = Camera{Status: CameraDetached}
	s.setStage(StageAwaitingQuantity)
}

// SubmitQuantity validates the quantity and hands the record to the gateway.
func (s *Session) SubmitQuantity(quantity string) (tea.Cmd, error) {
	if s.closed {
		return nil, errors.Wrap(errors.ErrInvalidTransition, "session closed")
	}
	if s.state.Stage != StageAwaitingQuantity {
		return nil, errors.Wrapf(errors.ErrInvalidTransition, "submit quantity from %s", s.state.Stage)
	}
	if s.state.Submission.Status == SubmissionPending {
		return nil, errors.ErrSubmissionInFlight
	}

	s.state.Quantity = quantity
	var verrs errors.ValidationErrors
	if !s.state.HasScannedValue() {
		s.state.FieldErrors[FieldScannedValue] = MsgScannedValueRequired
		verrs = append(verrs, errors.NewValidationError(MsgScannedValueRequired).WithField(string(FieldScannedValue)))
	}
	if util.IsBlank(quantity) {
		s.state.FieldErrors[FieldQuantity] = MsgQuantityRequired
		verrs = append(verrs, errors.NewValidationError(MsgQuantityRequired).WithField(string(FieldQuantity)))
	}
	if len(verrs) > 0 {
		return nil, verrs
	}
	delete(s.state.FieldErrors, FieldQuantity)

	cmd, err := s.gateway.Submit(s.state.WorkerID, s.state.ScannedValue, s.state.Quantity)
	if err != nil {
		s.recordFieldErrors(err)
		return nil, err
	}
	return cmd, nil
}

// recordFieldErrors maps record validation failures onto state fields.
func (s *Session) recordFieldErrors(err error) {
	var verrs errors.ValidationErrors
	if !errors.As(err, &verrs) {
		return
	}
	for _, ve := range verrs {
		if f, ok := recordFields[ve.Field]; ok {
			s.state.FieldErrors[f] = ve.Message()
		}
	}
}

var recordFields = map[string]Field{
	"employmentId":  FieldWorkerID,
	"scannedResult": FieldScannedValue,
	"quantity":      FieldQuantity,
}

// Reset releases the camera and starts a new pass. Results of work started
// before the reset are ignored.
func (s *Session) Reset() {
	s.scanner.Detach()
	s.state = initialState()
	s.epoch++
	s.gateway.abandon()
	s.logger.Info("capture session reset", "epoch", s.epoch)
}

// Cancel is the operator-initiated reset. It is refused while a submission
// is pending.
func (s *Session) Cancel() error {
	if s.state.Submission.Status == SubmissionPending {
		return errors.ErrSubmissionInFlight
	}
	s.Reset()
	return nil
}

// Close releases the camera. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.scanner.Detach()
	s.epoch++
	s.gateway.abandon()
	s.logger.Info("capture session closed", "misses", s.scanner.Misses())
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	return s.closed
}

// Update applies an asynchronous result to the session.
func (s *Session) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case CameraStartedMsg:
		return s.handleCameraStarted(msg)
	case DecodedMsg:
		if msg.Attach != s.scanner.Current() {
			return nil
		}
		s.ReceiveDecodedValue(msg.Value)
		return s.scanner.Listen()
	case CameraLostMsg:
		s.handleCameraLost(msg)
	case SubmitResultMsg:
		return s.gateway.handleResult(msg)
	case FeedbackExpiredMsg:
		s.gateway.handleExpired(msg)
	}
	return nil
}

func (s *Session) handleCameraStarted(msg CameraStartedMsg) tea.Cmd {
	if msg.Attach != s.scanner.Current() {
		return nil
	}
	if msg.Err != nil {
		s.logger.Warn("camera unavailable",
			"error", msg.Err,
			"permission_denied", errors.Is(msg.Err, errors.ErrPermissionDenied),
		)
		s.scanner.Detach()
		s.state.Camera = Camera{Status: CameraBlocked, Message: MsgCameraBlocked}
		return nil
	}
	s.state.Camera = Camera{Status: CameraActive, Message: MsgCameraActive}
	return nil
}

// handleCameraLost blocks the camera when a running decoder dies. The
// operator can go back with Reset and try again.
func (s *Session) handleCameraLost(msg CameraLostMsg) {
	if msg.Attach != s.scanner.Current() {
		return
	}
	s.logger.Warn("camera lost", "error", msg.Err)
	s.scanner.Detach()
	s.state.Camera = Camera{Status: CameraBlocked, Message: MsgCameraBlocked}
}

func (s *Session) setStage(stage Stage) {
	from := s.state.Stage
	s.state.Stage = stage
	s.logger.WithStage(stage.String()).Info("stage changed", "from", from.String())
}
