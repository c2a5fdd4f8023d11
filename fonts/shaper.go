package fonts

import (
	"bytes"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// shaper measures runs with HarfBuzz so that ligatures and kerning of script
// fonts are reflected in the width.
type shaper struct {
	mu   sync.Mutex
	face *gofont.Face
	hb   shaping.HarfbuzzShaper
}

func newShaper(data []byte) (*shaper, error) {
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &shaper{face: face}, nil
}

// advance returns the width of text in 1/1000 em.
func (s *shaper) advance(text string) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	script := detectScript(runes)
	s.mu.Lock()
	defer s.mu.Unlock()
	// A size of 1000 makes the 26.6 output read directly in text units.
	out := s.hb.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      s.face,
		Size:      fixed.Int26_6(1000 * 64),
		Script:    script,
		Language:  language.DefaultLanguage(),
	})
	adv := float64(out.Advance) / 64.0
	if adv < 0 {
		adv = -adv
	}
	return adv
}

func scriptDirection(script language.Script) di.Direction {
	if rtlScripts[script] {
		return di.DirectionRTL
	}
	return di.DirectionLTR
}

var rtlScripts = map[language.Script]bool{
	language.Arabic: true,
	language.Hebrew: true,
	language.Syriac: true,
	language.Thaana: true,
	language.Nko:    true,
}

// scriptRanges is ordered by how likely a script is to appear in a name.
var scriptRanges = []struct {
	table  *unicode.RangeTable
	script language.Script
}{
	{unicode.Latin, language.Latin},
	{unicode.Cyrillic, language.Cyrillic},
	{unicode.Greek, language.Greek},
	{unicode.Arabic, language.Arabic},
	{unicode.Hebrew, language.Hebrew},
	{unicode.Devanagari, language.Devanagari},
	{unicode.Bengali, language.Bengali},
	{unicode.Tamil, language.Tamil},
	{unicode.Telugu, language.Telugu},
	{unicode.Gujarati, language.Gujarati},
	{unicode.Gurmukhi, language.Gurmukhi},
	{unicode.Kannada, language.Kannada},
	{unicode.Malayalam, language.Malayalam},
	{unicode.Thai, language.Thai},
	{unicode.Han, language.Han},
	{unicode.Hiragana, language.Hiragana},
	{unicode.Katakana, language.Katakana},
	{unicode.Hangul, language.Hangul},
}

// detectScript returns the script most runes belong to, Latin when none
// are recognised.
func detectScript(runes []rune) language.Script {
	counts := make([]int, len(scriptRanges))
	best, bestCount := language.Latin, 0
	for _, r := range runes {
		for i, sr := range scriptRanges {
			if !unicode.Is(sr.table, r) {
				continue
			}
			counts[i]++
			if counts[i] > bestCount {
				best, bestCount = sr.script, counts[i]
			}
			break
		}
	}
	return best
}
