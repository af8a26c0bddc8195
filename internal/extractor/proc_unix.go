//go:build unix

package extractor

import (
	"os/exec"
	"syscall"
)

// killGroup runs the tool in its own process group so cancellation also
// reaches the ffmpeg children yt-dlp spawns.
func killGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
