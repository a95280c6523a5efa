package social

import (
	"bytes"
	"testing"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestRenderProducesPNG(t *testing.T) {
	data, err := Renderer{}.Render(Card{
		Title:           "The 94-minute tech support call",
		DurationSeconds: 5640,
		PersonaName:     "Edna",
		SiteName:        "baitboard.example.com",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Fatalf("not a png: % x", data[:8])
	}
}

func TestRenderEmptyTitle(t *testing.T) {
	data, err := Renderer{}.Render(Card{DurationSeconds: 30})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty png")
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0s"},
		{59, "59s"},
		{60, "1m 00s"},
		{125, "2m 05s"},
		{3600, "1h 00m 00s"},
		{5640, "1h 34m 00s"},
		{-5, "0s"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
