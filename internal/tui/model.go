package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/Iron-Ham/invscan/internal/capture"
	"github.com/Iron-Ham/invscan/internal/logging"
	"github.com/Iron-Ham/invscan/internal/tui/styles"
)

// Input limits
const (
	WorkerIDCharLimit = 64
	QuantityCharLimit = 16
	InputWidth        = 32
)

// Model holds the TUI application state
type Model struct {
	// Core components
	session *capture.Session
	logger  *logging.Logger

	// Inputs
	workerInput   textinput.Model
	quantityInput textinput.Model
	spinner       spinner.Model

	// UI state
	stage    capture.Stage
	width    int
	height   int
	notice   string
	quitting bool
}

// NewModel creates a new TUI model
func NewModel(session *capture.Session, logger *logging.Logger) Model {
	if logger == nil {
		logger = logging.NopLogger()
	}

	worker := textinput.New()
	worker.Placeholder = "Employment ID"
	worker.CharLimit = WorkerIDCharLimit
	worker.Width = InputWidth
	worker.Focus()

	quantity := textinput.New()
	quantity.Placeholder = "Quantity"
	quantity.CharLimit = QuantityCharLimit
	quantity.Width = InputWidth

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Primary

	return Model{
		session:       session,
		logger:        logger.WithComponent("tui"),
		workerInput:   worker,
		quantityInput: quantity,
		spinner:       sp,
		stage:         session.State().Stage,
	}
}

// syncStage moves input focus when the session changes stage.
func (m *Model) syncStage() {
	if m.session.State().Stage == m.stage {
		return
	}
	m.focusStage()
}

// resetInputs clears both inputs after a session reset. The stage may be
// unchanged, so focus is reapplied unconditionally.
func (m *Model) resetInputs() {
	m.workerInput.Reset()
	m.quantityInput.Reset()
	m.focusStage()
}

func (m *Model) focusStage() {
	m.stage = m.session.State().Stage

	switch m.stage {
	case capture.StageIdentifyWorker:
		m.workerInput.Reset()
		m.quantityInput.Reset()
		m.quantityInput.Blur()
		m.workerInput.Focus()
	case capture.StageScanning:
		m.workerInput.Blur()
		m.quantityInput.Blur()
	case capture.StageAwaitingQuantity:
		m.quantityInput.Reset()
		m.quantityInput.Focus()
	}
}

// focusedInput returns the input owned by the current stage, or nil.
func (m *Model) focusedInput() *textinput.Model {
	switch m.stage {
	case capture.StageIdentifyWorker:
		return &m.workerInput
	case capture.StageAwaitingQuantity:
		return &m.quantityInput
	default:
		return nil
	}
}
