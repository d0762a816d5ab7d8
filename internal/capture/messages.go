package capture

import "github.com/Iron-Ham/invscan/internal/submit"

// CameraStartedMsg reports the outcome of starting a decoder handle.
type CameraStartedMsg struct {
	Attach uint64
	Err    error
}

// DecodedMsg carries one accepted payload from a decoder attachment.
type DecodedMsg struct {
	Attach uint64
	Value  string
}

// CameraLostMsg reports a decoder that stopped after a successful start,
// e.g. the camera was unplugged.
type CameraLostMsg struct {
	Attach uint64
	Err    error
}

// SubmitResultMsg is the outcome of one submission request.
type SubmitResultMsg struct {
	Epoch   uint64
	Seq     uint64
	Receipt *submit.Receipt
	Err     error
}

// FeedbackExpiredMsg clears the success banner for submission Seq.
type FeedbackExpiredMsg struct {
	Epoch uint64
	Seq   uint64
}
