package view

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
)

func TestRenderBadgeProducesPNG(t *testing.T) {
	data, err := RenderBadge("Week of Wonder", "streak")
	if err != nil {
		t.Fatalf("render badge: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode badge: %v", err)
	}
	if got := img.Bounds().Dx(); got != badgeWidth {
		t.Fatalf("expected width %d, got %d", badgeWidth, got)
	}

	r, g, b, _ := img.At(1, 1).RGBA()
	want := CategoryColor("streak")
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
		t.Fatalf("expected band colour %v, got %d %d %d", want, r>>8, g>>8, b>>8)
	}
}

func TestCategoryColorFallback(t *testing.T) {
	if CategoryColor("unknown") != badgeFallback {
		t.Fatalf("expected fallback colour for unknown category")
	}
	if CategoryColor(" Social ") != categoryColors["social"] {
		t.Fatalf("expected category lookup to ignore case and spaces")
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		columns  int
		maxLines int
		want     []string
	}{
		{name: "fits", text: "First Question", columns: 20, maxLines: 3, want: []string{"First Question"}},
		{name: "wraps", text: "Explainer in Chief", columns: 10, maxLines: 3, want: []string{"Explainer", "in Chief"}},
		{name: "long word split", text: "Supercalifragilistic", columns: 8, maxLines: 3, want: []string{"Supercal", "ifragili", "stic"}},
		{name: "truncated", text: "one two three four five six", columns: 9, maxLines: 2, want: []string{"one two", "three..."}},
		{name: "empty", text: "", columns: 10, maxLines: 2, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.columns, tt.maxLines)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Fatalf("wrapText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
