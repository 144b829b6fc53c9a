package graphics

import (
	"image/color"
	"strconv"
	"strings"
)

// ColorFromInt converts a 24-bit RGB value (0xRRGGBB) to color.Color.
// - Bits 16-23: Red component
// - Bits 8-15: Green component
// - Bits 0-7: Blue component
func ColorFromInt(c int) color.Color {
	return color.RGBA{
		R: uint8((c >> 16) & 0xFF),
		G: uint8((c >> 8) & 0xFF),
		B: uint8(c & 0xFF),
		A: 0xFF,
	}
}

// ColorToInt converts a color.Color to a 24-bit RGB value (0xRRGGBB).
func ColorToInt(c color.Color) int {
	r, g, b, _ := c.RGBA()
	// RGBA() returns 16-bit values, so shift right by 8 to get 8-bit values
	return int(r>>8)<<16 | int(g>>8)<<8 | int(b>>8)
}

// スタイルシートで使える色定数
var namedColors = map[string]int{
	"WHITE":  0xFFFFFF,
	"BLACK":  0x000000,
	"GRAY":   0x888888,
	"GREY":   0x888888,
	"RED":    0xFC6255,
	"GREEN":  0x83C167,
	"BLUE":   0x58C4DD,
	"YELLOW": 0xFFFF00,
	"ORANGE": 0xFF862F,
	"PINK":   0xD147BD,
	"PURPLE": 0x9A72AC,
	"TEAL":   0x5CD0B3,
	"GOLD":   0xF0AC5F,
	"MAROON": 0xC55F73,
}

// ParseColor はスタイルシートの色指定 (#RRGGBB または色定数名) を
// color.Color に変換する。解釈できない場合は fallback を返す。
func ParseColor(s string, fallback color.Color) color.Color {
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		if v, err := strconv.ParseUint(s[1:], 16, 32); err == nil {
			return ColorFromInt(int(v))
		}
		return fallback
	}
	if v, ok := namedColors[strings.ToUpper(s)]; ok {
		return ColorFromInt(v)
	}
	return fallback
}
