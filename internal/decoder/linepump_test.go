package decoder

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Iron-Ham/invscan/internal/errors"
)

func TestLinePump(t *testing.T) {
	var (
		decoded []string
		noise   []error
		stopped atomic.Bool
	)
	p := linePump{
		onDecoded:     func(r Result) { decoded = append(decoded, r.Data) },
		onDecodeError: func(err error) { noise = append(noise, err) },
		stopped:       &stopped,
	}

	input := "SKU-1\r\n\nSKU-\x07BAD\nBOX 12 / SHELF A\n"
	if err := p.run(strings.NewReader(input)); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	want := []string{"SKU-1", "BOX 12 / SHELF A"}
	if len(decoded) != len(want) {
		t.Fatalf("decoded = %q, want %q", decoded, want)
	}
	for i := range want {
		if decoded[i] != want[i] {
			t.Errorf("decoded[%d] = %q, want %q", i, decoded[i], want[i])
		}
	}

	if len(noise) != 2 {
		t.Fatalf("expected 2 noise errors, got %d: %v", len(noise), noise)
	}
	var ne *NoiseError
	if !errors.As(noise[1], &ne) || ne.Reason != "non-printable payload" {
		t.Errorf("noise[1] = %v, want non-printable NoiseError", noise[1])
	}
}

func TestLinePump_StoppedDeliversNothing(t *testing.T) {
	var stopped atomic.Bool
	stopped.Store(true)

	calls := 0
	p := linePump{
		onDecoded:     func(Result) { calls++ },
		onDecodeError: func(error) { calls++ },
		stopped:       &stopped,
	}
	if err := p.run(strings.NewReader("SKU-1\n\n")); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no callbacks after stop, got %d", calls)
	}
}

func TestLinePump_NilCallbacks(t *testing.T) {
	var stopped atomic.Bool
	p := linePump{stopped: &stopped}
	if err := p.run(strings.NewReader("SKU-1\n\n")); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

func TestClassifyExit(t *testing.T) {
	tests := []struct {
		name       string
		stderr     string
		permission bool
	}{
		{
			name:       "v4l permission",
			stderr:     "WARNING: zbar video in v4l2_probe_iomode():\nERROR: zbar processor in _zbar_video_open(): opening video device '/dev/video0': Permission denied",
			permission: true,
		},
		{
			name:       "operation not permitted",
			stderr:     "open: Operation not permitted",
			permission: true,
		},
		{
			name:   "missing device",
			stderr: "ERROR: zbar processor in _zbar_video_open(): opening video device '/dev/video3': No such file or directory",
		},
		{
			name:   "busy device",
			stderr: "VIDIOC_S_FMT: Device or resource busy",
		},
		{
			name:   "silent exit",
			stderr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyExit("/dev/video0", errors.New("exit status 1"), tt.stderr)

			var camErr *errors.CameraUnavailableError
			if !errors.As(err, &camErr) {
				t.Fatalf("expected CameraUnavailableError, got %T", err)
			}
			if camErr.PermissionDenied() != tt.permission {
				t.Errorf("PermissionDenied() = %v, want %v (%v)", camErr.PermissionDenied(), tt.permission, err)
			}
			if !tt.permission && !errors.Is(err, errors.ErrDeviceUnavailable) {
				t.Errorf("expected ErrDeviceUnavailable, got %v", err)
			}
			if strings.Contains(err.Error(), "\n") {
				t.Errorf("error should carry only the last stderr line: %q", err.Error())
			}
		})
	}
}

func TestLastLine(t *testing.T) {
	if got := lastLine("one\ntwo\n"); got != "two" {
		t.Errorf("lastLine() = %q, want %q", got, "two")
	}
	if got := lastLine("single"); got != "single" {
		t.Errorf("lastLine() = %q, want %q", got, "single")
	}
}
