package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/jvlcode/screen-recorder/internal/domain"
	"github.com/jvlcode/screen-recorder/pkg/log"
)

// ProbeDuration asks ffprobe for the container duration in seconds.
func (l *Launcher) ProbeDuration(ctx context.Context, file string) (float64, error) {
	path, err := resolve(l.cfg.FFprobePath)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrProbeFailed, err)
	}

	cmd := l.command(ctx, path, []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		file,
	})
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v: %s", domain.ErrProbeFailed, file, err, strings.TrimSpace(stderr.String()))
	}

	d, err := parseDuration(out)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrProbeFailed, file, err)
	}
	l.logger.Debug("probed duration", log.String("file", file), log.Float64("seconds", d))
	return d, nil
}

func parseDuration(out []byte) (float64, error) {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %v", d)
	}
	return d, nil
}

// AudioDevices lists capture devices via ffmpeg's device listing mode.
func (l *Launcher) AudioDevices(ctx context.Context) ([]string, error) {
	path, err := resolve(l.cfg.FFmpegPath)
	if err != nil {
		return nil, err
	}

	cmd := l.command(ctx, path, []string{
		"-hide_banner",
		"-list_devices", "true",
		"-f", l.cfg.AudioFormat,
		"-i", "dummy",
	})
	// The listing always ends with a non-zero exit because "dummy" is not
	// a real input; only a failure to launch matters here.
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("list devices: %w", err)
		}
	}
	return parseAudioDevices(string(out)), nil
}

// DefaultMicrophone returns the first audio device. A found device is
// cached; an empty listing is not, so a microphone plugged in later is seen
// on the next call.
func (l *Launcher) DefaultMicrophone(ctx context.Context) (string, error) {
	l.micMu.Lock()
	defer l.micMu.Unlock()
	if l.mic != "" {
		return l.mic, nil
	}

	devices, err := l.AudioDevices(ctx)
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		l.logger.Warn("no audio capture device found")
		return "", nil
	}
	l.mic = devices[0]
	l.logger.Info("default microphone detected",
		log.String("device", l.mic),
		log.Int("candidates", len(devices)),
	)
	return l.mic, nil
}

var (
	quotedName  = regexp.MustCompile(`"([^"]+)"`)
	taggedAudio = regexp.MustCompile(`"([^"]+)"\s*\(audio\)`)
)

// parseAudioDevices understands both listing layouts: the current one tags
// every device with "(audio)" or "(video)", the older one groups devices
// under "DirectShow audio devices" and "DirectShow video devices" headers.
func parseAudioDevices(output string) []string {
	var devices []string
	seen := map[string]bool{}
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		devices = append(devices, name)
	}

	inAudioSection := false
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.Contains(line, "Alternative name"):
			continue
		case strings.Contains(line, "DirectShow video devices"):
			inAudioSection = false
			continue
		case strings.Contains(line, "DirectShow audio devices"):
			inAudioSection = true
			continue
		}

		if m := taggedAudio.FindStringSubmatch(line); m != nil {
			add(m[1])
			continue
		}
		if inAudioSection && !strings.Contains(line, "(video)") {
			if m := quotedName.FindStringSubmatch(line); m != nil {
				add(m[1])
			}
		}
	}
	return devices
}
