package view

import (
	"strings"
	"testing"

	"github.com/Iron-Ham/invscan/internal/capture"
)

func TestCaptureView_Render(t *testing.T) {
	tests := []struct {
		name        string
		state       *CaptureState
		contains    []string
		notContains []string
	}{
		{
			name:     "nil state returns empty",
			state:    nil,
			contains: []string{},
		},
		{
			name: "identify step with field error",
			state: &CaptureState{
				Session: capture.State{
					Stage:       capture.StageIdentifyWorker,
					FieldErrors: map[capture.Field]string{capture.FieldWorkerID: capture.MsgWorkerIDRequired},
				},
				WorkerInput: "> E-",
			},
			contains:    []string{"Identify worker", "Employment ID", "> E-", capture.MsgWorkerIDRequired},
			notContains: []string{"Scanned code"},
		},
		{
			name: "scanning shows worker and camera status",
			state: &CaptureState{
				Session: capture.State{
					Stage:    capture.StageScanning,
					WorkerID: "E-1001",
					Camera:   capture.Camera{Status: capture.CameraActive, Message: capture.MsgCameraActive},
				},
				Spinner: "*",
			},
			contains: []string{"Scan code", "E-1001", "active", capture.MsgCameraActive},
		},
		{
			name: "blocked camera shows banner",
			state: &CaptureState{
				Session: capture.State{
					Stage:    capture.StageScanning,
					WorkerID: "E-1001",
					Camera:   capture.Camera{Status: capture.CameraBlocked, Message: capture.MsgCameraBlocked},
				},
			},
			contains: []string{"blocked", "Camera is blocked"},
		},
		{
			name: "quantity step shows scanned value and failure",
			state: &CaptureState{
				Session: capture.State{
					Stage:        capture.StageAwaitingQuantity,
					WorkerID:     "E-1001",
					ScannedValue: "SKU-42",
					Submission: capture.Submission{
						Status:  capture.SubmissionFailed,
						Message: "Submission failed: request timed out. Press Enter to retry.",
					},
				},
				QuantityInput: "> 5",
			},
			contains: []string{"Enter quantity", "E-1001", "SKU-42", "> 5", "request timed out"},
		},
		{
			name: "success banner on identify",
			state: &CaptureState{
				Session: capture.State{
					Stage:      capture.StageIdentifyWorker,
					Submission: capture.Submission{Status: capture.SubmissionSucceeded, Message: capture.MsgSubmitted},
				},
			},
			contains: []string{"successfully tracked"},
		},
		{
			name: "notice is shown",
			state: &CaptureState{
				Session: capture.State{Stage: capture.StageAwaitingQuantity, ScannedValue: "X"},
				Notice:  "Submission in progress",
			},
			contains: []string{"Submission in progress"},
		},
	}

	v := NewCaptureView()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Render(tt.state)

			if tt.state == nil {
				if result != "" {
					t.Errorf("expected empty string for nil state, got: %s", result)
				}
				return
			}
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("expected output to contain %q, got: %s", want, result)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(result, unwanted) {
					t.Errorf("expected output not to contain %q, got: %s", unwanted, result)
				}
			}
		})
	}
}

func TestRenderBanner_IdleIsEmpty(t *testing.T) {
	if got := RenderBanner(capture.State{}); got != "" {
		t.Errorf("RenderBanner() = %q, want empty", got)
	}
}

func TestCaptureView_ScannedValueSanitized(t *testing.T) {
	state := &CaptureState{
		Session: capture.State{
			Stage:        capture.StageAwaitingQuantity,
			ScannedValue: "SKU\x1b[31m-RED\x07",
		},
	}
	result := NewCaptureView().Render(state)
	if strings.Contains(result, "\x07") {
		t.Errorf("control characters should be replaced: %q", result)
	}
}

func TestRenderHelp(t *testing.T) {
	tests := []struct {
		name        string
		state       *HelpBarState
		contains    []string
		notContains []string
	}{
		{
			name:  "nil state returns empty",
			state: nil,
		},
		{
			name:        "identify",
			state:       &HelpBarState{Stage: capture.StageIdentifyWorker},
			contains:    []string{"[Enter]", "continue", "[Ctrl+C]"},
			notContains: []string{"[Esc]"},
		},
		{
			name:     "scanning",
			state:    &HelpBarState{Stage: capture.StageScanning},
			contains: []string{"point the camera", "[Esc]", "start over"},
		},
		{
			name:     "camera blocked",
			state:    &HelpBarState{Stage: capture.StageScanning, CameraBlocked: true},
			contains: []string{"reset and retry"},
		},
		{
			name:     "quantity",
			state:    &HelpBarState{Stage: capture.StageAwaitingQuantity},
			contains: []string{"submit", "start over"},
		},
		{
			name:     "failed submission",
			state:    &HelpBarState{Stage: capture.StageAwaitingQuantity, Failed: true},
			contains: []string{"retry"},
		},
		{
			name:        "pending hides reset",
			state:       &HelpBarState{Stage: capture.StageAwaitingQuantity, Pending: true},
			contains:    []string{"SUBMITTING", "[Ctrl+C]"},
			notContains: []string{"[Esc]", "[Enter]"},
		},
	}

	v := NewHelpBarView()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.RenderHelp(tt.state)
			if tt.state == nil {
				if result != "" {
					t.Errorf("expected empty string for nil state, got: %s", result)
				}
				return
			}
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("expected output to contain %q, got: %s", want, result)
				}
			}
			for _, unwanted := range tt.notContains {
				if strings.Contains(result, unwanted) {
					t.Errorf("expected output not to contain %q, got: %s", unwanted, result)
				}
			}
		})
	}
}
