package view

import (
	"strings"

	"github.com/Iron-Ham/invscan/internal/capture"
	"github.com/Iron-Ham/invscan/internal/tui/styles"
)

// HelpBarState holds the state needed to render the help bar.
type HelpBarState struct {
	// Stage is the current capture step.
	Stage capture.Stage

	// Pending indicates a submission is in flight; reset is unavailable.
	Pending bool

	// CameraBlocked indicates the decoder could not start.
	CameraBlocked bool

	// Failed indicates the last submission failed and can be retried.
	Failed bool
}

// HelpBarView handles rendering of the help bar for each step.
type HelpBarView struct{}

// NewHelpBarView creates a new HelpBarView instance.
func NewHelpBarView() *HelpBarView {
	return &HelpBarView{}
}

// RenderHelp renders the key hints for the current step.
func (v *HelpBarView) RenderHelp(state *HelpBarState) string {
	if state == nil {
		return ""
	}

	if state.Pending {
		return styles.HelpBar.Render(
			styles.Primary.Bold(true).Render("SUBMITTING") + "  " +
				styles.Muted.Render("waiting for the server") + "  " +
				styles.HelpKey.Render("[Ctrl+C]") + " quit",
		)
	}

	var keys []string
	switch state.Stage {
	case capture.StageIdentifyWorker:
		keys = append(keys, styles.HelpKey.Render("[Enter]")+" continue")
	case capture.StageScanning:
		if state.CameraBlocked {
			keys = append(keys, styles.HelpKey.Render("[Esc]")+" reset and retry")
		} else {
			keys = append(keys, styles.Muted.Render("point the camera at the code"))
		}
	case capture.StageAwaitingQuantity:
		if state.Failed {
			keys = append(keys, styles.HelpKey.Render("[Enter]")+" retry")
		} else {
			keys = append(keys, styles.HelpKey.Render("[Enter]")+" submit")
		}
	}

	if state.Stage != capture.StageIdentifyWorker && !state.CameraBlocked {
		keys = append(keys, styles.HelpKey.Render("[Esc]")+" start over")
	}
	keys = append(keys, styles.HelpKey.Render("[Ctrl+C]")+" quit")

	return styles.HelpBar.Render(strings.Join(keys, "  "))
}
