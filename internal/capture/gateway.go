package capture

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/invscan/internal/errors"
	"github.com/Iron-Ham/invscan/internal/logging"
	"github.com/Iron-Ham/invscan/internal/submit"
)

const (
	defaultSubmitTimeout  = 10 * time.Second
	defaultSuccessDisplay = 3 * time.Second
)

// Gateway sends completed records and folds the outcome back into the
// session state. At most one request is outstanding at a time.
type Gateway struct {
	s              *Session
	client         submit.Client
	timeout        time.Duration
	successDisplay time.Duration
	logger         *logging.Logger

	seq        uint64
	inflight   uint64
	successSeq uint64
}

func newGateway(s *Session, client submit.Client, timeout, successDisplay time.Duration, logger *logging.Logger) *Gateway {
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}
	if successDisplay <= 0 {
		successDisplay = defaultSuccessDisplay
	}
	return &Gateway{
		s:              s,
		client:         client,
		timeout:        timeout,
		successDisplay: successDisplay,
		logger:         logger.WithComponent("gateway"),
	}
}

// Submit validates the record and returns a command that performs exactly
// one request. It fails with ErrSubmissionInFlight while a request is
// pending, without issuing another.
func (g *Gateway) Submit(workerID, scannedValue, quantity string) (tea.Cmd, error) {
	st := &g.s.state
	if st.Submission.Status == SubmissionPending {
		return nil, errors.ErrSubmissionInFlight
	}

	rec := submit.NewRecord(workerID, scannedValue, quantity)
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	g.seq++
	g.inflight = g.seq
	st.Submission = Submission{Status: SubmissionPending, Message: MsgSubmitting}

	seq, epoch := g.seq, g.s.epoch
	client, timeout := g.client, g.timeout
	g.logger.Info("submitting record", "seq", seq, "scanned_value", rec.ScannedResult)

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		receipt, err := client.Submit(ctx, rec)
		return SubmitResultMsg{Epoch: epoch, Seq: seq, Receipt: receipt, Err: err}
	}, nil
}

// Pending reports whether a request is outstanding.
func (g *Gateway) Pending() bool {
	return g.inflight != 0
}

// abandon forgets any outstanding request so its result is ignored.
func (g *Gateway) abandon() {
	g.inflight = 0
	g.successSeq = 0
}

func (g *Gateway) handleResult(msg SubmitResultMsg) tea.Cmd {
	if msg.Epoch != g.s.epoch || msg.Seq != g.inflight {
		g.logger.Debug("discarding stale submission result", "seq", msg.Seq, "epoch", msg.Epoch)
		return nil
	}
	g.inflight = 0

	if msg.Err != nil {
		reason := msg.Err.Error()
		var subErr *errors.SubmissionError
		if errors.As(msg.Err, &subErr) {
			reason = subErr.Message()
		}
		g.logger.Warn("submission failed",
			"seq", msg.Seq,
			"error", msg.Err,
			"severity", errors.GetSeverity(msg.Err).String(),
			"retryable", errors.IsRetryable(msg.Err),
		)
		g.s.state.Submission = Submission{Status: SubmissionFailed, Message: submissionFailedMessage(reason)}
		return nil
	}

	args := []any{"seq", msg.Seq}
	if msg.Receipt != nil && msg.Receipt.ID != "" {
		args = append(args, "receipt_id", msg.Receipt.ID)
	}
	g.logger.Info("submission succeeded", args...)

	g.s.Reset()
	g.successSeq = msg.Seq
	g.s.state.Submission = Submission{Status: SubmissionSucceeded, Message: MsgSubmitted}

	epoch, seq := g.s.epoch, msg.Seq
	return tea.Tick(g.successDisplay, func(time.Time) tea.Msg {
		return FeedbackExpiredMsg{Epoch: epoch, Seq: seq}
	})
}

func (g *Gateway) handleExpired(msg FeedbackExpiredMsg) {
	if msg.Epoch != g.s.epoch || msg.Seq != g.successSeq {
		return
	}
	if g.s.state.Submission.Status == SubmissionSucceeded {
		g.s.state.Submission = Submission{Status: SubmissionIdle}
	}
	g.successSeq = 0
}
