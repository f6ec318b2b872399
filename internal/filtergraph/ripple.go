package filtergraph

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
)

// RippleOptions controls click marker rendering.
type RippleOptions struct {
	// VideoInput and RippleInput are the input pads, normally 0:v and 1:v.
	VideoInput  string
	RippleInput string

	// Size is the marker edge length in pixels.
	Size int

	// Duration is how long each marker stays visible.
	Duration time.Duration
}

// DefaultRippleOptions returns a 50px marker shown for half a second.
func DefaultRippleOptions() RippleOptions {
	return RippleOptions{
		VideoInput:  "0:v",
		RippleInput: "1:v",
		Size:        50,
		Duration:    500 * time.Millisecond,
	}
}

// Ripples builds a graph that overlays one marker per click, centred on the
// click position and visible from the click time for opts.Duration.
// Click times are milliseconds from the start of the output.
// ok is false when there is nothing to overlay.
func Ripples(clicks []domain.Click, opts RippleOptions) (g Graph, ok bool) {
	if len(clicks) == 0 {
		return Graph{}, false
	}
	def := DefaultRippleOptions()
	if opts.VideoInput == "" {
		opts.VideoInput = def.VideoInput
	}
	if opts.RippleInput == "" {
		opts.RippleInput = def.RippleInput
	}
	if opts.Size <= 0 {
		opts.Size = def.Size
	}
	if opts.Duration <= 0 {
		opts.Duration = def.Duration
	}

	g.Add(Chain{
		Inputs:  []string{opts.VideoInput},
		Filters: []Filter{{Name: "setpts", Args: []string{"PTS-STARTPTS"}}},
		Outputs: []string{"v0"},
	})

	markers := make([]string, len(clicks))
	for i := range clicks {
		markers[i] = fmt.Sprintf("r%d", i)
	}
	g.Add(Chain{
		Inputs:  []string{opts.RippleInput},
		Filters: []Filter{{Name: "split", Args: []string{strconv.Itoa(len(clicks))}}},
		Outputs: markers,
	})

	half := opts.Size / 2
	size := strconv.Itoa(opts.Size)
	for i, c := range clicks {
		scaled := markers[i] + "f"
		g.Add(Chain{
			Inputs: []string{markers[i]},
			Filters: []Filter{
				{Name: "scale", Args: []string{size, size}},
				{Name: "format", Args: []string{"rgba"}},
			},
			Outputs: []string{scaled},
		})

		start := float64(c.TimeMs) / 1000
		end := float64(c.TimeMs+opts.Duration.Milliseconds()) / 1000
		g.Add(Chain{
			Inputs: []string{fmt.Sprintf("v%d", i), scaled},
			Filters: []Filter{{Name: "overlay", Args: []string{
				"x=" + strconv.Itoa(c.X-half),
				"y=" + strconv.Itoa(c.Y-half),
				fmt.Sprintf("enable='between(t,%.3f,%.3f)'", start, end),
			}}},
			Outputs: []string{fmt.Sprintf("v%d", i+1)},
		})
	}
	return g, true
}
