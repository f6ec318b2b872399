//go:build !windows

package ffmpeg

import "os/exec"

func configureCmd(cmd *exec.Cmd) {}
