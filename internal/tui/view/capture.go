package view

import (
	"strings"

	"github.com/Iron-Ham/invscan/internal/capture"
	"github.com/Iron-Ham/invscan/internal/tui/styles"
	"github.com/Iron-Ham/invscan/internal/util"
)

// minValueWidth is the narrowest the scanned value is truncated to.
const minValueWidth = 12

// CaptureState holds what the capture screen needs at render time.
type CaptureState struct {
	// Session is a snapshot of the workflow state.
	Session capture.State

	// WorkerInput and QuantityInput are the rendered text inputs.
	WorkerInput   string
	QuantityInput string

	// Spinner is the rendered scanning indicator.
	Spinner string

	// Notice is a transient message about a rejected key press.
	Notice string

	// Width is the terminal width. Zero means unknown.
	Width int
}

// CaptureView renders the three capture steps.
type CaptureView struct{}

// NewCaptureView creates a new CaptureView instance.
func NewCaptureView() *CaptureView {
	return &CaptureView{}
}

// Render renders the step for the current stage followed by the feedback banner.
func (v *CaptureView) Render(state *CaptureState) string {
	if state == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.Header.Render("Inventory Capture"))
	b.WriteString("\n")

	switch state.Session.Stage {
	case capture.StageIdentifyWorker:
		b.WriteString(v.renderIdentify(state))
	case capture.StageScanning:
		b.WriteString(v.renderScanning(state))
	case capture.StageAwaitingQuantity:
		b.WriteString(v.renderQuantity(state))
	}

	if banner := RenderBanner(state.Session); banner != "" {
		b.WriteString("\n")
		b.WriteString(banner)
	}
	if state.Notice != "" {
		b.WriteString("\n")
		b.WriteString(styles.WarningMsg.Render(state.Notice))
	}
	return b.String()
}

func (v *CaptureView) renderIdentify(state *CaptureState) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Step 1 of 3: Identify worker"))
	b.WriteString("\n")
	b.WriteString(styles.Label.Render("Employment ID"))
	b.WriteString(state.WorkerInput)
	b.WriteString(renderFieldError(state.Session.FieldError(capture.FieldWorkerID)))
	return b.String()
}

func (v *CaptureView) renderScanning(state *CaptureState) string {
	st := state.Session
	var b strings.Builder
	b.WriteString(styles.Title.Render("Step 2 of 3: Scan code"))
	b.WriteString("\n")
	b.WriteString(renderField("Employment ID", st.WorkerID))
	b.WriteString("\n")

	status := st.Camera.Status.String()
	indicator := styles.Text.Foreground(styles.CameraColor(status)).Render(styles.CameraIcon(status))
	if st.Camera.Status == capture.CameraStarting || st.Camera.Status == capture.CameraActive {
		indicator = state.Spinner
	}
	b.WriteString(styles.Label.Render("Camera"))
	b.WriteString(indicator + " " + styles.Muted.Render(status))
	if st.Camera.Message != "" && st.Camera.Status != capture.CameraBlocked {
		b.WriteString("\n")
		b.WriteString(styles.Subtitle.Render(st.Camera.Message))
	}
	return b.String()
}

func (v *CaptureView) renderQuantity(state *CaptureState) string {
	st := state.Session
	var b strings.Builder
	b.WriteString(styles.Title.Render("Step 3 of 3: Enter quantity"))
	b.WriteString("\n")
	b.WriteString(renderField("Employment ID", st.WorkerID))
	b.WriteString("\n")
	b.WriteString(renderField("Scanned code", truncateValue(st.ScannedValue, state.Width)))
	b.WriteString(renderFieldError(st.FieldError(capture.FieldScannedValue)))
	b.WriteString("\n")
	b.WriteString(styles.Label.Render("Quantity"))
	b.WriteString(state.QuantityInput)
	b.WriteString(renderFieldError(st.FieldError(capture.FieldQuantity)))
	return b.String()
}

// RenderBanner renders the submission or camera feedback, or "" when
// there is nothing to report. A blocked camera takes precedence.
func RenderBanner(st capture.State) string {
	if st.Camera.Status == capture.CameraBlocked {
		return styles.BannerStyle("failed").Render(st.Camera.Message)
	}
	if st.Submission.Status == capture.SubmissionIdle || st.Submission.Message == "" {
		return ""
	}
	return styles.BannerStyle(st.Submission.Status.String()).Render(st.Submission.Message)
}

func renderField(label, value string) string {
	return styles.Label.Render(label) + styles.Value.Render(util.DisplaySafe(value))
}

func renderFieldError(msg string) string {
	if msg == "" {
		return ""
	}
	return "\n" + styles.FieldError.Render(msg)
}

// truncateValue fits a scanned payload to the terminal width.
func truncateValue(value string, width int) string {
	if width <= 0 {
		return value
	}
	avail := width - styles.Label.GetWidth() - 4
	if avail < minValueWidth {
		avail = minValueWidth
	}
	return util.TruncateANSI(util.DisplaySafe(value), avail)
}
