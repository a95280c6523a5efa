// Package social renders shareable PNG cards for calls. The card shows the
// call title, how long the scammer was kept on the line, and the persona that
// answered. Rendering is pure: the handler decides where the bytes go.
package social

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"github.com/fogleman/gg"
)

const (
	cardWidth  = 1200
	cardHeight = 630
)

// Card is the renderable content of a share card.
type Card struct {
	Title           string
	DurationSeconds int
	PersonaName     string
	SiteName        string
}

// Renderer draws share cards. Font paths are optional; with none set the
// card falls back to gg's built-in face, which keeps tests hermetic.
type Renderer struct {
	TitleFontPath string
	BodyFontPath  string
}

// Render produces a 1200x630 PNG, the standard OpenGraph card size.
func (r Renderer) Render(card Card) ([]byte, error) {
	dc := gg.NewContext(cardWidth, cardHeight)

	// Background.
	dc.SetColor(color.RGBA{R: 0x12, G: 0x16, B: 0x24, A: 0xff})
	dc.Clear()
	dc.SetColor(color.RGBA{R: 0x3d, G: 0xd6, B: 0x8c, A: 0xff})
	dc.DrawRectangle(0, 0, cardWidth, 12)
	dc.Fill()

	if err := r.loadFont(dc, r.TitleFontPath, 64); err != nil {
		return nil, err
	}
	dc.SetColor(color.White)
	title := card.Title
	if strings.TrimSpace(title) == "" {
		title = "An unnamed masterpiece"
	}
	dc.DrawStringWrapped(title, 80, 120, 0, 0, cardWidth-160, 1.3, gg.AlignLeft)

	if err := r.loadFont(dc, r.BodyFontPath, 44); err != nil {
		return nil, err
	}
	dc.SetColor(color.RGBA{R: 0x3d, G: 0xd6, B: 0x8c, A: 0xff})
	dc.DrawString(fmt.Sprintf("Scammer time wasted: %s", FormatDuration(card.DurationSeconds)), 80, 380)

	dc.SetColor(color.RGBA{R: 0xb8, G: 0xc0, B: 0xd0, A: 0xff})
	if card.PersonaName != "" {
		dc.DrawString(fmt.Sprintf("Answered by %s", card.PersonaName), 80, 450)
	}
	if card.SiteName != "" {
		dc.DrawString(card.SiteName, 80, cardHeight-60)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode card png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r Renderer) loadFont(dc *gg.Context, path string, size float64) error {
	if path == "" {
		return nil
	}
	if err := dc.LoadFontFace(path, size); err != nil {
		return fmt.Errorf("load font %s: %w", path, err)
	}
	return nil
}

// FormatDuration renders seconds as "1h 02m 03s" style text for humans.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
