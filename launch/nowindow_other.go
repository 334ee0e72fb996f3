//go:build !windows

package launch

import osexec "os/exec"

func setNoWindow(cmd *osexec.Cmd) {}
