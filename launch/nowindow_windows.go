package launch

import (
	osexec "os/exec"
	"syscall"
)

// createNoWindow prevents a console window from flashing when wsl.exe starts.
const createNoWindow = 0x08000000

func setNoWindow(cmd *osexec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: createNoWindow,
		HideWindow:    true,
	}
}
