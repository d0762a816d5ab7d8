package tui

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/invscan/internal/capture"
	"github.com/Iron-Ham/invscan/internal/errors"
	"github.com/Iron-Ham/invscan/internal/logging"
	"github.com/Iron-Ham/invscan/internal/tui/view"
)

// NoticeSubmissionInFlight is shown when a key press is refused because a
// submission is pending.
const NoticeSubmissionInFlight = "A submission is in progress. Wait for the result."

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	session *capture.Session
	logger  *logging.Logger
}

// New creates a new TUI application
func New(session *capture.Session, logger *logging.Logger) *App {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &App{
		model:   NewModel(session, logger),
		session: session,
		logger:  logger,
	}
}

// Run starts the TUI application
func (a *App) Run() error {
	// Release the camera when the TUI exits (both normal and signal-based)
	defer a.session.Close()

	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		sig, ok := <-sigChan
		if !ok {
			return
		}
		a.logger.Info("received signal, shutting down", "signal", sig.String())
		if a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()

	// Clean up signal handler
	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case capture.CameraStartedMsg, capture.DecodedMsg, capture.CameraLostMsg,
		capture.SubmitResultMsg, capture.FeedbackExpiredMsg:
		cmd := m.session.Update(msg)
		m.syncStage()
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Cursor blink and other input-owned messages
	if in := m.focusedInput(); in != nil {
		var cmd tea.Cmd
		*in, cmd = in.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		m.session.Close()
		return m, tea.Quit

	case "esc":
		if err := m.session.Cancel(); err != nil {
			if errors.Is(err, errors.ErrSubmissionInFlight) {
				m.notice = NoticeSubmissionInFlight
			}
			return m, nil
		}
		m.resetInputs()
		return m, nil

	case "enter":
		return m.handleSubmit()
	}

	in := m.focusedInput()
	if in == nil {
		return m, nil
	}
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)

	switch m.stage {
	case capture.StageIdentifyWorker:
		m.session.EditWorkerID(m.workerInput.Value())
	case capture.StageAwaitingQuantity:
		if m.session.State().Submission.Status == capture.SubmissionPending {
			// Keep the input in step with the frozen quantity.
			m.quantityInput.SetValue(m.session.State().Quantity)
			return m, nil
		}
		m.session.EditQuantity(m.quantityInput.Value())
	}
	return m, cmd
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	var (
		cmd tea.Cmd
		err error
	)
	switch m.stage {
	case capture.StageIdentifyWorker:
		cmd, err = m.session.SubmitIdentify(m.workerInput.Value())
	case capture.StageAwaitingQuantity:
		cmd, err = m.session.SubmitQuantity(m.quantityInput.Value())
	default:
		return m, nil
	}

	if err != nil {
		// User-facing errors are already on the session state.
		if errors.Is(err, errors.ErrSubmissionInFlight) {
			m.notice = NoticeSubmissionInFlight
		} else if !errors.IsUserFacing(err) {
			m.logger.Warn("submit rejected", "stage", m.stage.String(), "error", err)
		}
		return m, nil
	}

	m.syncStage()
	return m, cmd
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.session.State()
	body := view.NewCaptureView().Render(&view.CaptureState{
		Session:       st,
		WorkerInput:   m.workerInput.View(),
		QuantityInput: m.quantityInput.View(),
		Spinner:       m.spinner.View(),
		Notice:        m.notice,
		Width:         m.width,
	})
	help := view.NewHelpBarView().RenderHelp(&view.HelpBarState{
		Stage:         st.Stage,
		Pending:       st.Submission.Status == capture.SubmissionPending,
		CameraBlocked: st.Camera.Status == capture.CameraBlocked,
		Failed:        st.Submission.Status == capture.SubmissionFailed,
	})

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString(help)
	return b.String()
}
