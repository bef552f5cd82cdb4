package input

import (
	"os"
	"runtime"

	"codeberg.org/mutker/clickctl/internal/errors"
)

// Available reports whether global input capture and injection can work in
// this environment.
func Available() error {
	return available(runtime.GOOS, os.Getenv)
}

func available(goos string, getenv func(string) string) error {
	errFactory := errors.New()

	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		if getenv("DISPLAY") != "" {
			return nil
		}
		if getenv("WAYLAND_DISPLAY") != "" {
			return errFactory.WithMessage(errors.ErrInputUnavailable,
				"Wayland session without XWayland DISPLAY; global input hooks require X11")
		}
		return errFactory.WithMessage(errors.ErrInputUnavailable, "DISPLAY is not set")
	case "darwin", "windows":
		return nil
	default:
		return errFactory.WithData(errors.ErrInputUnavailable, goos)
	}
}
