package pdfrender

import (
	"strings"

	"github.com/arpitWebvedant/E-signature-api/fonts"
)

// WrapText breaks text into lines no wider than maxWidth, splitting on
// spaces. A word wider than maxWidth gets a line of its own. Explicit line
// breaks are kept.
func WrapText(text string, face fonts.Face, size, maxWidth float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 || maxWidth <= 0 {
			lines = append(lines, strings.TrimSpace(para))
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if face.TextWidth(candidate, size) > maxWidth {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}
