// Package opener hands a freshly downloaded file to the desktop's default
// application. It is best effort: output is discarded and failures are ignored.
package opener

import (
	"os/exec"
	"runtime"
)

// Operating systems with a dedicated open command.
const (
	OSDarwin  = "darwin"
	OSWindows = "windows"
)

// Commands used to open a file with its default handler.
const (
	OpenCommand    = "open"
	XDGOpenCommand = "xdg-open"
	CmdCommand     = "cmd"
	CmdFlag        = "/c"
	StartCommand   = "start"
)

// Opener opens a local file.
type Opener interface {
	Open(path string)
}

// Nop never opens anything.
type Nop struct{}

func (Nop) Open(string) {}

// System uses the host's default file handler.
type System struct {
	goos string
	run  func(name string, args ...string) error
}

// NewSystem returns an opener for the running platform.
func NewSystem() *System {
	return &System{goos: runtime.GOOS, run: runDiscarded}
}

func (s *System) Open(path string) {
	name, args := Command(s.goos, path)
	_ = s.run(name, args...)
}

// Command returns the program and arguments that open path on goos.
func Command(goos, path string) (string, []string) {
	switch goos {
	case OSDarwin:
		return OpenCommand, []string{path}
	case OSWindows:
		// The empty argument is the window title expected by start.
		return CmdCommand, []string{CmdFlag, StartCommand, "", path}
	default:
		return XDGOpenCommand, []string{path}
	}
}

// runDiscarded runs the command with stdout and stderr left nil, which
// connects them to the null device.
func runDiscarded(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}
