// Package decoder defines the code decoding capability the capture session
// drives, plus its drivers.
//
// A [Capability] binds to a video surface and reports each decoded payload
// through a callback. Drivers:
//
//   - [Process] runs a camera decoding program (zbarcam by default) against a
//     video device and treats each stdout line as one payload.
//   - [Device] reads newline-terminated payloads from a keyboard-wedge or
//     serial scanner device, or from a FIFO.
//
// Handles are started asynchronously and stopped exactly once by their owner.
// Stop is idempotent on every driver, unblocks pending reads, and no
// callback fires after Stop returns.
package decoder

import "context"

// Surface names a video source or a preview target.
type Surface struct {
	Name string
}

// Result is one decoded payload.
type Result struct {
	Data string
}

// Options are hints for a driver. Drivers apply the ones they support.
type Options struct {
	// PreferredCamera is the facing to use when the video surface does not
	// name a device ("environment" or "user").
	PreferredCamera string
	// HighlightRegion marks the scan region on the preview.
	HighlightRegion bool
	// HighlightOutline outlines detected codes on the preview.
	HighlightOutline bool
	// Overlay is where the preview is drawn. Nil means no preview.
	Overlay *Surface
	// OnDecodeError receives per-frame misses and unreadable payloads.
	// These are expected while the operator is aiming and are never fatal.
	OnDecodeError func(error)
	// OnFailure is called at most once when a running decoder stops on its
	// own, e.g. the camera was unplugged. It is never called once Stop has
	// returned, nor for failures Start already returned.
	OnFailure func(error)
}

// Capability creates decoder handles bound to a video surface.
type Capability interface {
	Attach(video Surface, onDecoded func(Result), opts Options) (Handle, error)
}

// Handle is a single decoder binding.
type Handle interface {
	// Start begins decoding. It blocks until the decoder is running or has
	// failed; camera failures are reported as *errors.CameraUnavailableError.
	Start(ctx context.Context) error
	// Stop releases the camera. It is safe to call more than once and before
	// Start.
	Stop() error
}
