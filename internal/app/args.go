package app

import (
	"strconv"

	"github.com/jvlcode/screen-recorder/internal/filtergraph"
)

// recordingArgs captures the desktop and one microphone into out.
// The GOP length equals the framerate so every second starts on a keyframe.
func recordingArgs(s Settings, mic, out string) []string {
	fps := strconv.Itoa(s.Framerate)
	return []string{
		"-y",
		"-thread_queue_size", "1024",
		"-use_wallclock_as_timestamps", "1",
		"-f", s.CaptureFormat,
		"-draw_mouse", "1",
		"-framerate", fps,
		"-i", s.CaptureInput,
		"-thread_queue_size", "1024",
		"-use_wallclock_as_timestamps", "1",
		"-f", s.AudioFormat,
		"-i", "audio=" + mic,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-preset", s.Preset,
		"-crf", strconv.Itoa(s.CRF),
		"-pix_fmt", "yuv420p",
		"-g", fps,
		"-sc_threshold", "0",
		"-fps_mode", "cfr",
		"-c:a", "aac",
		"-b:a", s.AudioBitrate,
		"-ar", strconv.Itoa(s.AudioSampleRate),
		"-movflags", "+faststart",
		out,
	}
}

// trimArgs re-encodes [start, end] of in. When graph is non-empty the ripple
// image is added as the second input and composited over the video.
func trimArgs(s Settings, in, out string, start, end float64, ripple string, graph filtergraph.Graph) []string {
	args := []string{
		"-y",
		"-ss", seconds(start),
		"-to", seconds(end),
		"-i", in,
	}
	if len(graph.Chains) > 0 {
		args = append(args,
			"-i", ripple,
			"-filter_complex", graph.String(),
			"-map", "["+graph.Output()+"]",
			"-map", "0:a?",
		)
	}
	return append(args,
		"-c:v", "libx264",
		"-preset", s.TrimPreset,
		"-crf", strconv.Itoa(s.TrimCRF),
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		out,
	)
}

// concatArgs stream-copies every manifest entry into out.
func concatArgs(manifest, out string) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		"-movflags", "+faststart",
		out,
	}
}

// edgeTrimArgs stream-copies [from, to] of in.
func edgeTrimArgs(in, out string, from, to float64) []string {
	return []string{
		"-y",
		"-ss", seconds(from),
		"-to", seconds(to),
		"-i", in,
		"-c", "copy",
		out,
	}
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
