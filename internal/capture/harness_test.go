package capture

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/invscan/internal/decoder"
	"github.com/Iron-Ham/invscan/internal/testutil"
)

const waitTimeout = 2 * time.Second

// harness plays the role of the bubbletea runtime: it executes commands on
// goroutines and feeds their messages back through Session.Update on the
// test goroutine.
type harness struct {
	t      *testing.T
	s      *Session
	cam    *testutil.FakeCapability
	client *testutil.FakeClient
	msgs   chan tea.Msg
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		cam:    &testutil.FakeCapability{},
		client: &testutil.FakeClient{},
		msgs:   make(chan tea.Msg, 64),
	}
	opts := Options{
		Capability:     h.cam,
		Client:         h.client,
		Video:          decoder.Surface{Name: "video0"},
		SubmitTimeout:  time.Second,
		SuccessDisplay: 20 * time.Millisecond,
		NewID:          func() string { return "session-test" },
	}
	for _, fn := range configure {
		fn(&opts)
	}
	h.s = New(opts)
	t.Cleanup(h.s.Close)
	return h
}

// run executes cmd asynchronously.
func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	go func() {
		h.msgs <- cmd()
	}()
}

// next returns the next non-batch, non-nil message.
func (h *harness) next() tea.Msg {
	h.t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case msg := <-h.msgs:
			switch m := msg.(type) {
			case nil:
				continue
			case tea.BatchMsg:
				for _, c := range m {
					h.run(c)
				}
				continue
			}
			return msg
		case <-deadline:
			h.t.Fatal("timed out waiting for a message")
			return nil
		}
	}
}

// deliver routes the next message through the session.
func (h *harness) deliver() tea.Msg {
	h.t.Helper()
	msg := h.next()
	h.run(h.s.Update(msg))
	return msg
}

// until delivers messages until cond holds.
func (h *harness) until(cond func(State) bool) {
	h.t.Helper()
	for !cond(h.s.State()) {
		h.deliver()
	}
}

// identify submits a worker ID and waits for the camera to come up.
func (h *harness) identify(workerID string) *testutil.FakeHandle {
	h.t.Helper()
	cmd, err := h.s.SubmitIdentify(workerID)
	if err != nil {
		h.t.Fatalf("SubmitIdentify() error = %v", err)
	}
	h.run(cmd)
	h.until(func(st State) bool { return st.Camera.Status != CameraStarting })
	return h.cam.Last()
}

// scan emits value from the live handle and waits for quantity entry.
func (h *harness) scan(value string) {
	h.t.Helper()
	h.cam.Last().Emit(value)
	h.until(func(st State) bool { return st.Stage == StageAwaitingQuantity })
}

func stageIs(stage Stage) func(State) bool {
	return func(st State) bool { return st.Stage == stage }
}

func submissionIs(status SubmissionStatus) func(State) bool {
	return func(st State) bool { return st.Submission.Status == status }
}
