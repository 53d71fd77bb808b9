// Package palette maps entity type labels to display colors. A fixed table
// covers the common labels in both English and Chinese; everything else gets
// a deterministic hash-derived HSL color, so the same label renders the same
// color within and across sessions without any registry.
package palette

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Colors for the known type labels. Person red and Organization blue are
// relied on by downstream styling and must not change.
const (
	PersonRed        = "#e74c3c"
	OrganizationBlue = "#3498db"
	LocationGreen    = "#2ecc71"
	ConceptPurple    = "#9b59b6"
	TechnologyOrange = "#f39c12"
	EventTeal        = "#1abc9c"
	TimeNavy         = "#34495e"
	UnknownGray      = "#95a5a6"
)

func builtinTable() map[string]string {
	return map[string]string{
		"Person":       PersonRed,
		"人物":           PersonRed,
		"Organization": OrganizationBlue,
		"组织":           OrganizationBlue,
		"Location":     LocationGreen,
		"地点":           LocationGreen,
		"Concept":      ConceptPurple,
		"概念":           ConceptPurple,
		"Technology":   TechnologyOrange,
		"技术":           TechnologyOrange,
		"Event":        EventTeal,
		"事件":           EventTeal,
		"Time":         TimeNavy,
		"时间":           TimeNavy,
		"Unknown":      UnknownGray,
	}
}

// Palette resolves type labels to colors. The zero value is not usable;
// construct with New.
type Palette struct {
	table map[string]string
}

// New returns a Palette with the built-in label table.
func New() *Palette {
	return &Palette{table: builtinTable()}
}

// paletteFile is the TOML shape for operator color overrides.
type paletteFile struct {
	Colors map[string]string `toml:"colors"`
}

// LoadOverrides merges label->color entries from a TOML file into the table.
// File entries win over built-ins.
func (p *Palette) LoadOverrides(path string) error {
	var file paletteFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("decode palette file %s: %w", path, err)
	}
	for label, color := range file.Colors {
		p.table[label] = color
	}
	return nil
}

// ColorFor returns the display color for a type label: the fixed table when
// the label is known, otherwise a hash-derived HSL color.
func (p *Palette) ColorFor(label string) string {
	if c, ok := p.table[label]; ok {
		return c
	}

	h := fnv.New32a()
	h.Write([]byte(label))
	n := h.Sum32()

	hue := n % 360
	sat := 60 + n%30
	light := 50 + n%20
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", hue, sat, light)
}

// TextColorFor picks a label color that stays readable on the given fill:
// black on light fills, white on dark ones. Accepts #rgb, #rrggbb, and
// hsl(h, s%, l%) inputs; unparseable input defaults to black text.
func TextColorFor(color string) string {
	r, g, b, err := parseColor(color)
	if err != nil {
		return "#000000"
	}

	luminance := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	if luminance >= 128 {
		return "#000000"
	}
	return "#ffffff"
}

// Lighten returns the color moved toward white by percent (0-100). Used for
// hover and selection highlighting; never persisted.
func Lighten(color string, percent float64) string {
	r, g, b, err := parseColor(color)
	if err != nil {
		return color
	}

	f := percent / 100
	lift := func(c uint8) uint8 {
		return uint8(math.Min(255, float64(c)+(255-float64(c))*f))
	}
	return fmt.Sprintf("#%02x%02x%02x", lift(r), lift(g), lift(b))
}

func parseColor(color string) (r, g, b uint8, err error) {
	color = strings.TrimSpace(color)
	switch {
	case strings.HasPrefix(color, "#"):
		return parseHex(color)
	case strings.HasPrefix(color, "hsl("):
		return parseHSL(color)
	default:
		return 0, 0, 0, fmt.Errorf("unsupported color format: %q", color)
	}
}

func parseHex(color string) (r, g, b uint8, err error) {
	hex := strings.TrimPrefix(color, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("bad hex color: %q", color)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad hex color %q: %w", color, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

func parseHSL(color string) (r, g, b uint8, err error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(color, "hsl("), ")")
	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("bad hsl color: %q", color)
	}

	h, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad hsl hue in %q: %w", color, err)
	}
	s, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(parts[1]), "%"), 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad hsl saturation in %q: %w", color, err)
	}
	l, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(parts[2]), "%"), 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad hsl lightness in %q: %w", color, err)
	}

	return hslToRGB(h, s/100, l/100)
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8, error) {
	h = math.Mod(h, 360) / 360

	var r, g, b float64
	if s == 0 {
		r, g, b = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		r = hueToChannel(p, q, h+1.0/3)
		g = hueToChannel(p, q, h)
		b = hueToChannel(p, q, h-1.0/3)
	}

	return uint8(math.Round(r * 255)), uint8(math.Round(g * 255)), uint8(math.Round(b * 255)), nil
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}
