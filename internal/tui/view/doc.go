// Package view provides the rendering components for the capture TUI.
//
// Views are stateless: callers build a small state struct from the
// session snapshot and the bubbles components, then render it.
//
// # Main Types
//
//   - [CaptureView]: renders the identify, scan and quantity steps
//   - [HelpBarView]: renders the key hints for the current step
//
// # Basic Usage
//
//	v := view.NewCaptureView()
//	out := v.Render(&view.CaptureState{
//	    Session:     session.State(),
//	    WorkerInput: workerInput.View(),
//	    Width:       width,
//	})
package view
