package view

import (
	"strings"

	"github.com/gdamore/tcell/v2"
)

// keyString names ev the way keymaps spell it: "left", "shift+up",
// "ctrl+b". Printable runes without modifiers return "".
func keyString(ev *tcell.EventKey) string {
	mods := ev.Modifiers()
	// Named keys first: several share codes with ctrl letters.
	if name := namedKey(ev.Key()); name != "" {
		prefix := ""
		if mods&tcell.ModCtrl != 0 {
			prefix += "ctrl+"
		}
		if mods&tcell.ModAlt != 0 {
			prefix += "alt+"
		}
		if mods&tcell.ModShift != 0 {
			prefix += "shift+"
		}
		return prefix + name
	}
	if ev.Key() == tcell.KeyRune {
		if mods&tcell.ModAlt != 0 {
			return "alt+" + strings.ToLower(string(ev.Rune()))
		}
		return ""
	}
	if ev.Key() >= tcell.KeyCtrlA && ev.Key() <= tcell.KeyCtrlZ {
		return "ctrl+" + string(rune('a'+int(ev.Key()-tcell.KeyCtrlA)))
	}
	return ""
}

func namedKey(k tcell.Key) string {
	switch k {
	case tcell.KeyUp:
		return "up"
	case tcell.KeyDown:
		return "down"
	case tcell.KeyLeft:
		return "left"
	case tcell.KeyRight:
		return "right"
	case tcell.KeyHome:
		return "home"
	case tcell.KeyEnd:
		return "end"
	case tcell.KeyPgUp:
		return "pgup"
	case tcell.KeyPgDn:
		return "pgdn"
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return "backspace"
	case tcell.KeyEnter:
		return "enter"
	case tcell.KeyDelete:
		return "del"
	case tcell.KeyEscape:
		return "esc"
	case tcell.KeyTab:
		return "tab"
	}
	return ""
}
