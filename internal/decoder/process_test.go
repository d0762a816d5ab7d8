package decoder

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/invscan/internal/errors"
)

// writeScript creates an executable shell script standing in for zbarcam.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := filepath.Join(t.TempDir(), "fake-zbarcam")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

// fakeDevice creates a readable file standing in for /dev/videoN.
func fakeDevice(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write device: %v", err)
	}
	return path
}

type collector struct {
	mu      sync.Mutex
	decoded chan string
	noise   []error
}

func newCollector() *collector {
	return &collector{decoded: make(chan string, 16)}
}

func (c *collector) onDecoded(r Result) { c.decoded <- r.Data }

func (c *collector) onError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noise = append(c.noise, err)
}

func (c *collector) next(t *testing.T) string {
	t.Helper()
	select {
	case v := <-c.decoded:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for decoded payload")
		return ""
	}
}

func TestProcess_Args(t *testing.T) {
	tests := []struct {
		name    string
		preview bool
		overlay *Surface
		extra   []string
		want    []string
	}{
		{
			name: "no overlay disables display",
			want: []string{"--raw", "--nodisplay", "/dev/video0"},
		},
		{
			name:    "overlay with preview",
			preview: true,
			overlay: &Surface{Name: "preview"},
			want:    []string{"--raw", "/dev/video0"},
		},
		{
			name:    "overlay without preview",
			overlay: &Surface{Name: "preview"},
			want:    []string{"--raw", "--nodisplay", "/dev/video0"},
		},
		{
			name:  "extra args before device",
			extra: []string{"-Sdisable", "-Sqrcode.enable"},
			want:  []string{"--raw", "--nodisplay", "-Sdisable", "-Sqrcode.enable", "/dev/video0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProcess(ProcessConfig{Preview: tt.preview, Args: tt.extra}, nil)
			got := p.args("/dev/video0", Options{Overlay: tt.overlay})
			if !slices.Equal(got, tt.want) {
				t.Errorf("args() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcess_CameraFor(t *testing.T) {
	p := NewProcess(ProcessConfig{Cameras: map[string]string{
		"environment": "/dev/video0",
		"user":        "/dev/video1",
	}}, nil)

	if got := p.cameraFor("user"); got != "/dev/video1" {
		t.Errorf("cameraFor(user) = %q", got)
	}
	if got := p.cameraFor("rear-left"); got != "/dev/video0" {
		t.Errorf("cameraFor(unknown) = %q, want environment camera", got)
	}

	p = NewProcess(ProcessConfig{Cameras: map[string]string{"b": "/dev/video5", "a": "/dev/video4"}}, nil)
	if got := p.cameraFor("environment"); got != "/dev/video4" {
		t.Errorf("cameraFor() fallback = %q, want first by name", got)
	}
}

func TestProcess_AttachWithoutCamera(t *testing.T) {
	p := NewProcess(ProcessConfig{}, nil)
	_, err := p.Attach(Surface{}, func(Result) {}, Options{PreferredCamera: "environment"})
	if !errors.Is(err, errors.ErrDeviceUnavailable) {
		t.Errorf("Attach() error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestProcess_DeliversPayloads(t *testing.T) {
	script := writeScript(t, "echo SKU-00042\necho\nexec sleep 30")
	p := NewProcess(ProcessConfig{Command: script, StartupGrace: 100 * time.Millisecond}, nil)

	c := newCollector()
	failures := make(chan error, 1)
	h, err := p.Attach(Surface{Name: fakeDevice(t)}, c.onDecoded, Options{
		OnDecodeError: c.onError,
		OnFailure:     func(err error) { failures <- err },
	})
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if got := c.next(t); got != "SKU-00042" {
		t.Errorf("decoded = %q, want %q", got, "SKU-00042")
	}

	start := time.Now()
	if err := h.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Stop() took %v, want prompt interrupt", elapsed)
	}
	if err := h.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
	select {
	case err := <-failures:
		t.Errorf("OnFailure called after Stop: %v", err)
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.noise) != 1 {
		t.Errorf("expected 1 noise error for the empty line, got %v", c.noise)
	}
}

func TestProcess_EarlyExitClassified(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		permission bool
	}{
		{
			name:       "permission denied",
			body:       "echo \"ERROR: opening video device '/dev/video0': Permission denied\" >&2\nexit 1",
			permission: true,
		},
		{
			name: "device missing",
			body: "echo \"ERROR: opening video device '/dev/video0': No such device\" >&2\nexit 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := writeScript(t, tt.body)
			p := NewProcess(ProcessConfig{Command: script, StartupGrace: 5 * time.Second}, nil)

			h, err := p.Attach(Surface{Name: fakeDevice(t)}, func(Result) {}, Options{})
			if err != nil {
				t.Fatalf("Attach() error = %v", err)
			}
			defer func() { _ = h.Stop() }()

			err = h.Start(context.Background())
			var camErr *errors.CameraUnavailableError
			if !errors.As(err, &camErr) {
				t.Fatalf("Start() error = %v, want CameraUnavailableError", err)
			}
			if camErr.PermissionDenied() != tt.permission {
				t.Errorf("PermissionDenied() = %v, want %v", camErr.PermissionDenied(), tt.permission)
			}
		})
	}
}

func TestProcess_LateExitReported(t *testing.T) {
	script := writeScript(t, "sleep 1\necho \"ERROR: opening video device '/dev/video0': No such device\" >&2\nexit 1")
	p := NewProcess(ProcessConfig{Command: script, StartupGrace: 100 * time.Millisecond}, nil)

	failures := make(chan error, 2)
	h, err := p.Attach(Surface{Name: fakeDevice(t)}, func(Result) {}, Options{
		OnFailure: func(err error) { failures <- err },
	})
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	defer func() { _ = h.Stop() }()

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v, want nil inside the grace window", err)
	}

	select {
	case err := <-failures:
		var camErr *errors.CameraUnavailableError
		if !errors.As(err, &camErr) || !errors.Is(err, errors.ErrDeviceUnavailable) {
			t.Errorf("OnFailure error = %v, want CameraUnavailableError", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for OnFailure")
	}

	_ = h.Stop()
	if len(failures) != 0 {
		t.Error("OnFailure should be called once")
	}
}

func TestProcess_MissingDevice(t *testing.T) {
	script := writeScript(t, "exec sleep 30")
	p := NewProcess(ProcessConfig{Command: script}, nil)

	h, err := p.Attach(Surface{Name: filepath.Join(t.TempDir(), "video9")}, func(Result) {}, Options{})
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	defer func() { _ = h.Stop() }()

	err = h.Start(context.Background())
	if !errors.Is(err, errors.ErrDeviceUnavailable) {
		t.Errorf("Start() error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestProcess_UnreadableDevice(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses file permissions")
	}
	device := fakeDevice(t)
	if err := os.Chmod(device, 0o000); err != nil {
		t.Fatal(err)
	}

	p := NewProcess(ProcessConfig{Command: writeScript(t, "exec sleep 30")}, nil)
	h, _ := p.Attach(Surface{Name: device}, func(Result) {}, Options{})
	defer func() { _ = h.Stop() }()

	err := h.Start(context.Background())
	if !errors.Is(err, errors.ErrPermissionDenied) {
		t.Errorf("Start() error = %v, want ErrPermissionDenied", err)
	}
}

func TestProcess_CommandNotFound(t *testing.T) {
	p := NewProcess(ProcessConfig{Command: filepath.Join(t.TempDir(), "no-such-zbarcam")}, nil)
	h, _ := p.Attach(Surface{Name: fakeDevice(t)}, func(Result) {}, Options{})
	defer func() { _ = h.Stop() }()

	err := h.Start(context.Background())
	if !errors.Is(err, errors.ErrDeviceUnavailable) {
		t.Errorf("Start() error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestProcess_StopBeforeStart(t *testing.T) {
	p := NewProcess(ProcessConfig{Command: writeScript(t, "exec sleep 30")}, nil)
	h, _ := p.Attach(Surface{Name: fakeDevice(t)}, func(Result) {}, Options{})

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := h.Start(context.Background()); !errors.Is(err, errors.ErrDecoderStopped) {
		t.Errorf("Start() after Stop() = %v, want ErrDecoderStopped", err)
	}
}

func TestProcess_StartCanceled(t *testing.T) {
	p := NewProcess(ProcessConfig{Command: writeScript(t, "exec sleep 30"), StartupGrace: 10 * time.Second}, nil)
	h, _ := p.Attach(Surface{Name: fakeDevice(t)}, func(Result) {}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	if err := h.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}
	if err := h.Stop(); err != nil {
		t.Errorf("Stop() after canceled start = %v", err)
	}
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 8}
	_, _ = b.Write([]byte("0123456789"))
	_, _ = b.Write([]byte("ab"))
	if got := b.String(); got != "456789ab" {
		t.Errorf("String() = %q, want %q", got, "456789ab")
	}
}
