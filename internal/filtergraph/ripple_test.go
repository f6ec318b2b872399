package filtergraph

import (
	"testing"
	"time"

	"github.com/jvlcode/screen-recorder/internal/domain"
)

func TestRipples_Empty(t *testing.T) {
	g, ok := Ripples(nil, DefaultRippleOptions())
	if ok || len(g.Chains) != 0 || g.Output() != "" {
		t.Fatalf("expected no graph, got %q ok=%v", g.String(), ok)
	}
}

func TestRipples_TwoClicks(t *testing.T) {
	clicks := []domain.Click{
		{X: 100, Y: 200, TimeMs: 1000},
		{X: 30, Y: 10, TimeMs: 2250},
	}

	g, ok := Ripples(clicks, RippleOptions{})
	if !ok {
		t.Fatal("expected graph")
	}

	want := "[0:v]setpts=PTS-STARTPTS[v0];" +
		"[1:v]split=2[r0][r1];" +
		"[r0]scale=50:50,format=rgba[r0f];" +
		"[v0][r0f]overlay=x=75:y=175:enable='between(t,1.000,1.500)'[v1];" +
		"[r1]scale=50:50,format=rgba[r1f];" +
		"[v1][r1f]overlay=x=5:y=-15:enable='between(t,2.250,2.750)'[v2]"
	if got := g.String(); got != want {
		t.Fatalf("graph mismatch\n got: %s\nwant: %s", got, want)
	}
	if g.Output() != "v2" {
		t.Fatalf("Output() = %q, want v2", g.Output())
	}
}

func TestRipples_CustomSizeAndDuration(t *testing.T) {
	g, _ := Ripples([]domain.Click{{X: 40, Y: 40, TimeMs: 0}}, RippleOptions{Size: 20, Duration: time.Second})
	want := "[0:v]setpts=PTS-STARTPTS[v0];" +
		"[1:v]split=1[r0];" +
		"[r0]scale=20:20,format=rgba[r0f];" +
		"[v0][r0f]overlay=x=30:y=30:enable='between(t,0.000,1.000)'[v1]"
	if got := g.String(); got != want {
		t.Fatalf("graph mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestFilterString(t *testing.T) {
	if got := (Filter{Name: "null"}).String(); got != "null" {
		t.Fatalf("got %q", got)
	}
}
