package capture

import "maps"

// Stage is the active step of the capture workflow.
type Stage int

const (
	// StageIdentifyWorker collects the worker (employment) ID.
	StageIdentifyWorker Stage = iota
	// StageScanning waits for the decoder to report a code.
	StageScanning
	// StageAwaitingQuantity collects the quantity and submits.
	StageAwaitingQuantity
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageIdentifyWorker:
		return "identify_worker"
	case StageScanning:
		return "scanning"
	case StageAwaitingQuantity:
		return "awaiting_quantity"
	default:
		return "unknown"
	}
}

// Field names an operator-editable value that can carry an inline error.
type Field string

const (
	FieldWorkerID     Field = "workerId"
	FieldScannedValue Field = "scannedValue"
	FieldQuantity     Field = "quantity"
)

// SubmissionStatus drives the feedback banner.
type SubmissionStatus int

const (
	SubmissionIdle SubmissionStatus = iota
	SubmissionPending
	SubmissionSucceeded
	SubmissionFailed
)

// String returns the string representation of the status.
func (s SubmissionStatus) String() string {
	switch s {
	case SubmissionIdle:
		return "idle"
	case SubmissionPending:
		return "pending"
	case SubmissionSucceeded:
		return "succeeded"
	case SubmissionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CameraStatus tracks the decoder lifecycle. It is separate from Stage
// because starting the decoder is asynchronous and can fail after the stage
// has already advanced.
type CameraStatus int

const (
	CameraDetached CameraStatus = iota
	CameraStarting
	CameraActive
	CameraBlocked
)

// String returns the string representation of the camera status.
func (s CameraStatus) String() string {
	switch s {
	case CameraDetached:
		return "detached"
	case CameraStarting:
		return "starting"
	case CameraActive:
		return "active"
	case CameraBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Submission is the submission status plus its banner text.
type Submission struct {
	Status  SubmissionStatus
	Message string
}

// Camera is the camera status plus its banner text.
type Camera struct {
	Status  CameraStatus
	Message string
}

// State is one workflow pass. It is owned by the Session; callers get copies.
type State struct {
	Stage        Stage
	WorkerID     string
	ScannedValue string
	Quantity     string
	FieldErrors  map[Field]string
	Submission   Submission
	Camera       Camera
}

func initialState() State {
	return State{
		Stage:       StageIdentifyWorker,
		FieldErrors: map[Field]string{},
	}
}

// HasScannedValue reports whether a code has been recorded.
func (s State) HasScannedValue() bool {
	return s.ScannedValue != ""
}

// FieldError returns the inline error for f, or "".
func (s State) FieldError(f Field) string {
	return s.FieldErrors[f]
}

func (s State) clone() State {
	out := s
	out.FieldErrors = maps.Clone(s.FieldErrors)
	if out.FieldErrors == nil {
		out.FieldErrors = map[Field]string{}
	}
	return out
}

// Operator-facing text.
const (
	MsgWorkerIDRequired     = "Employment ID is required"
	MsgQuantityRequired     = "Quantity is required"
	MsgScannedValueRequired = "Scan a code before entering a quantity"
	MsgSubmitting           = "Submitting…"
	MsgSubmitted            = "Your inventory has been successfully tracked!"
	MsgCameraStarting       = "Starting camera…"
	MsgCameraActive         = "Point the camera at the code"
	MsgCameraBlocked        = "Camera is blocked or not accessible. Allow camera access, then press Esc to reset and retry."
)

func submissionFailedMessage(reason string) string {
	return "Submission failed: " + reason + ". Press Enter to retry."
}
