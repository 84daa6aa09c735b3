package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// CheckPipeWire checks if pw-record is installed and returns its status
func CheckPipeWire() Status {
	return check("pw-record", "--version")
}

// CheckNotifySend checks if notify-send is installed and returns its status
func CheckNotifySend() Status {
	return check("notify-send", "--version")
}

func check(binary, versionFlag string) Status {
	path, err := exec.LookPath(binary)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}

	// first line of the version output is enough
	output, err := exec.Command(path, versionFlag).Output()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}
