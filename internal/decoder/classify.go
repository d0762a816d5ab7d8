package decoder

import (
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"

	"github.com/Iron-Ham/invscan/internal/errors"
)

// probeDevice opens the device read-only and closes it again so access
// problems surface before the decoder program is spawned.
func probeDevice(device string) error {
	f, err := os.OpenFile(device, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return classifyOpenError(device, err)
	}
	_ = f.Close()
	return nil
}

// classifyOpenError maps a failed open to a CameraUnavailableError. Anything
// other than an access refusal (missing node, ENODEV, EBUSY) counts as the
// device being unavailable.
func classifyOpenError(device string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return errors.NewCameraUnavailableError(device, fmt.Errorf("%w: %v", errors.ErrPermissionDenied, err))
	}
	return errors.NewCameraUnavailableError(device, fmt.Errorf("%w: %v", errors.ErrDeviceUnavailable, err))
}

var permissionKeywords = []string{
	"permission denied",
	"operation not permitted",
	"eacces",
	"not authorized",
}

// classifyExit maps an early decoder exit to a CameraUnavailableError using
// the program's stderr.
func classifyExit(device string, exitErr error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if detail == "" && exitErr != nil {
		detail = exitErr.Error()
	}
	if detail == "" {
		detail = "decoder exited during startup"
	}

	lower := strings.ToLower(detail)
	for _, kw := range permissionKeywords {
		if strings.Contains(lower, kw) {
			return errors.NewCameraUnavailableError(device, fmt.Errorf("%w: %s", errors.ErrPermissionDenied, lastLine(detail)))
		}
	}
	return errors.NewCameraUnavailableError(device, fmt.Errorf("%w: %s", errors.ErrDeviceUnavailable, lastLine(detail)))
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
