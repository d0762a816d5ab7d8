package decoder

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/Iron-Ham/invscan/internal/util"
)

// maxPayloadBytes bounds a single decoded line. QR codes top out below 3KB.
const maxPayloadBytes = 64 * 1024

// NoiseError describes a line that was read but is not a usable payload.
type NoiseError struct {
	Line   string
	Reason string
}

func (e *NoiseError) Error() string {
	return fmt.Sprintf("decode noise: %s (%q)", e.Reason, util.TruncateString(e.Line, 32))
}

// linePump turns newline-delimited decoder output into callbacks.
type linePump struct {
	onDecoded     func(Result)
	onDecodeError func(error)
	stopped       *atomic.Bool
}

// run reads r until EOF or error and returns the read error, if any.
// Nothing is delivered once stopped is set.
func (p *linePump) run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxPayloadBytes)

	for scanner.Scan() {
		if p.stopped.Load() {
			return nil
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			p.noise(&NoiseError{Line: line, Reason: "empty line"})
			continue
		}
		if !util.IsPrintable(line) {
			p.noise(&NoiseError{Line: line, Reason: "non-printable payload"})
			continue
		}
		if p.onDecoded != nil {
			p.onDecoded(Result{Data: line})
		}
	}
	return scanner.Err()
}

func (p *linePump) noise(err error) {
	if p.onDecodeError != nil && !p.stopped.Load() {
		p.onDecodeError(err)
	}
}
