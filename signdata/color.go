package signdata

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGB colour with components in [0,1].
type Color struct {
	R, G, B float64
}

// Black is used for signers without a usable colour.
var Black = Color{}

// ParseColor reads "#rrggbb", "rrggbb" or "#rgb". Anything else is Black.
func ParseColor(s string) Color {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Black
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Black
	}
	return Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}
}

// Gray returns a neutral colour of the given intensity.
func Gray(v float64) Color { return Color{R: v, G: v, B: v} }

// Hex renders the colour as "RRGGBB" without a leading '#'.
func (c Color) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B))
}

func channel(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// SignerColor returns the roster colour for email, Black when unknown.
func SignerColor(signers []Signer, email string) Color {
	if s, ok := FindSigner(signers, email); ok {
		return ParseColor(s.Color)
	}
	return Black
}
