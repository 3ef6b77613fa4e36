package view

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/kobzarvs/qdraft/internal/config"
)

type palette struct {
	main       tcell.Style
	status     tcell.Style
	header     tcell.Style
	quote      tcell.Style
	code       tcell.Style
	gutter     tcell.Style
	decoration tcell.Color
	selFg      tcell.Color
	selBg      tcell.Color
	codeBg     tcell.Color
	entities   map[string]tcell.Color
	syntax     map[string]tcell.Color
}

func newPalette(t config.Theme) palette {
	mainFg := parseColor(t.Foreground, tcell.ColorWhite)
	mainBg := parseColor(t.Background, tcell.ColorBlack)
	codeBg := parseColor(t.CodeBackground, mainBg)
	main := tcell.StyleDefault.Foreground(mainFg).Background(mainBg)

	p := palette{
		main: main,
		status: tcell.StyleDefault.
			Foreground(parseColor(t.StatuslineForeground, tcell.ColorBlack)).
			Background(parseColor(t.StatuslineBackground, tcell.ColorGray)),
		header:     main.Foreground(parseColor(t.HeaderForeground, mainFg)).Bold(true),
		quote:      main.Foreground(parseColor(t.QuoteForeground, mainFg)).Italic(true),
		code:       main.Background(codeBg),
		gutter:     main.Foreground(parseColor(t.GutterForeground, blend(mainFg, mainBg, 0.5))),
		decoration: parseColor(t.DecorationForeground, mainFg),
		selFg:      parseColor(t.SelectionForeground, mainFg),
		selBg:      parseColor(t.SelectionBackground, blend(mainFg, mainBg, 0.7)),
		codeBg:     codeBg,
		entities:   make(map[string]tcell.Color, len(t.Entities)),
		syntax: map[string]tcell.Color{
			"keyword":     parseColor(t.SyntaxKeyword, mainFg),
			"string":      parseColor(t.SyntaxString, mainFg),
			"comment":     parseColor(t.SyntaxComment, mainFg),
			"type":        parseColor(t.SyntaxType, mainFg),
			"function":    parseColor(t.SyntaxFunction, mainFg),
			"number":      parseColor(t.SyntaxNumber, mainFg),
			"constant":    parseColor(t.SyntaxConstant, mainFg),
			"operator":    parseColor(t.SyntaxOperator, mainFg),
			"punctuation": parseColor(t.SyntaxPunctuation, mainFg),
			"field":       parseColor(t.SyntaxField, mainFg),
			"builtin":     parseColor(t.SyntaxBuiltin, mainFg),
			"variable":    parseColor(t.SyntaxVariable, mainFg),
		},
	}
	for name, hex := range t.Entities {
		p.entities[name] = parseColor(hex, p.decoration)
	}
	return p
}

// syntaxColor falls back to the variable colour for captures the theme
// has no entry for, such as "parameter".
func (p palette) syntaxColor(kind string) tcell.Color {
	if c, ok := p.syntax[kind]; ok {
		return c
	}
	return p.syntax["variable"]
}

func parseColor(name string, fallback tcell.Color) tcell.Color {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if strings.HasPrefix(name, "#") {
		c, err := colorful.Hex(name)
		if err != nil {
			return fallback
		}
		return fromColorful(c)
	}
	name = strings.ToLower(name)
	if name == "default" {
		return tcell.ColorDefault
	}
	c := tcell.GetColor(name)
	if c == tcell.ColorDefault {
		return fallback
	}
	return c
}

func fromColorful(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func toColorful(c tcell.Color) (colorful.Color, bool) {
	r, g, b := c.RGB()
	if r < 0 || g < 0 || b < 0 {
		return colorful.Color{}, false
	}
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, true
}

// blend mixes a towards b by t in Lab space. Colours without an RGB value
// return a unchanged.
func blend(a, b tcell.Color, t float64) tcell.Color {
	ca, ok1 := toColorful(a)
	cb, ok2 := toColorful(b)
	if !ok1 || !ok2 {
		return a
	}
	return fromColorful(ca.BlendLab(cb, t))
}
