package process

import (
	"os/exec"
	"strconv"
	"strings"
)

// Alive reports whether a process with the given PID exists. On Windows
// os.FindProcess always succeeds, so tasklist is queried instead.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	out, err := exec.Command("tasklist", "/FI", "PID eq "+strconv.Itoa(pid), "/NH", "/FO", "CSV").Output()
	if err != nil {
		return false
	}
	return strings.Contains(string(out), strconv.Itoa(pid))
}
