package config

import (
	"maps"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type DocumentOptions struct {
	DefaultBlockType string `toml:"default-block-type"`
	TreeBlocks       bool   `toml:"tree-blocks"`
	Format           string `toml:"format"`
}

type LogOptions struct {
	Debug bool   `toml:"debug"`
	File  string `toml:"file"`
}

type StoreOptions struct {
	Backend     string `toml:"backend"`
	Dir         string `toml:"dir"`
	RedisAddr   string `toml:"redis-addr"`
	RedisPrefix string `toml:"redis-prefix"`
	RedisDB     int    `toml:"redis-db"`
}

type ServerOptions struct {
	Addr string `toml:"addr"`
}

type Theme struct {
	Theme                string            `toml:"theme"`
	Foreground           string            `toml:"foreground"`
	Background           string            `toml:"background"`
	StatuslineForeground string            `toml:"statusline-foreground"`
	StatuslineBackground string            `toml:"statusline-background"`
	SelectionForeground  string            `toml:"selection-foreground"`
	SelectionBackground  string            `toml:"selection-background"`
	HeaderForeground     string            `toml:"header-foreground"`
	QuoteForeground      string            `toml:"quote-foreground"`
	CodeBackground       string            `toml:"code-background"`
	GutterForeground     string            `toml:"gutter-foreground"`
	DecorationForeground string            `toml:"decoration-foreground"`
	Entities             map[string]string `toml:"entities"`
	SyntaxKeyword        string            `toml:"syntax-keyword"`
	SyntaxString         string            `toml:"syntax-string"`
	SyntaxComment        string            `toml:"syntax-comment"`
	SyntaxType           string            `toml:"syntax-type"`
	SyntaxFunction       string            `toml:"syntax-function"`
	SyntaxNumber         string            `toml:"syntax-number"`
	SyntaxConstant       string            `toml:"syntax-constant"`
	SyntaxOperator       string            `toml:"syntax-operator"`
	SyntaxPunctuation    string            `toml:"syntax-punctuation"`
	SyntaxField          string            `toml:"syntax-field"`
	SyntaxBuiltin        string            `toml:"syntax-builtin"`
	SyntaxVariable       string            `toml:"syntax-variable"`
}

type Config struct {
	Document DocumentOptions   `toml:"document"`
	Log      LogOptions        `toml:"log"`
	Store    StoreOptions      `toml:"store"`
	Server   ServerOptions     `toml:"server"`
	Theme    Theme             `toml:"theme"`
	Keymap   map[string]string `toml:"keymap"`
}

func Default() Config {
	return Config{
		Document: DocumentOptions{
			DefaultBlockType: "unstyled",
			Format:           "json",
		},
		Store: StoreOptions{
			Backend:     "file",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "qdraft:doc:",
		},
		Server: ServerOptions{Addr: "localhost:8080"},
		Theme: Theme{
			Foreground:           "#B3B1AD",
			Background:           "#0A0E14",
			StatuslineForeground: "#B3B1AD",
			StatuslineBackground: "#0F1419",
			SelectionForeground:  "#B3B1AD",
			SelectionBackground:  "#27425A",
			HeaderForeground:     "#FFD173",
			QuoteForeground:      "#5C6773",
			CodeBackground:       "#0F1419",
			GutterForeground:     "#3E4B59",
			DecorationForeground: "#E6B450",
			Entities: map[string]string{
				"LINK":    "#59C2FF",
				"MENTION": "#D4BFFF",
				"IMAGE":   "#95E6CB",
			},
			SyntaxKeyword:     "#FFA759",
			SyntaxString:      "#BAE67E",
			SyntaxComment:     "#5C6773",
			SyntaxType:        "#5CCFE6",
			SyntaxFunction:    "#FFD173",
			SyntaxNumber:      "#D4BFFF",
			SyntaxConstant:    "#FFDD8E",
			SyntaxOperator:    "#F29668",
			SyntaxPunctuation: "#C0C0C0",
			SyntaxField:       "#E6B673",
			SyntaxBuiltin:     "#73D0FF",
			SyntaxVariable:    "#B3B1AD",
		},
		Keymap: map[string]string{
			"left":        "move_left",
			"right":       "move_right",
			"up":          "move_up",
			"down":        "move_down",
			"home":        "line_start",
			"end":         "line_end",
			"shift+left":  "extend_left",
			"shift+right": "extend_right",
			"shift+up":    "extend_up",
			"shift+down":  "extend_down",
			"backspace":   "backspace",
			"del":         "delete_char",
			"enter":       "split_block",
			"ctrl+b":      "toggle_bold",
			"ctrl+t":      "toggle_italic",
			"ctrl+u":      "toggle_underline",
			"ctrl+s":      "save",
			"esc":         "collapse_selection",
			"ctrl+q":      "quit",
			"ctrl+c":      "quit",
		},
	}
}

func Load() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var userCfg Config
	md, err := toml.Decode(string(data), &userCfg)
	if err != nil {
		return cfg, err
	}

	mergeString(&cfg.Document.DefaultBlockType, userCfg.Document.DefaultBlockType)
	mergeString(&cfg.Document.Format, userCfg.Document.Format)
	if md.IsDefined("document", "tree-blocks") {
		cfg.Document.TreeBlocks = userCfg.Document.TreeBlocks
	}

	cfg.Log.Debug = userCfg.Log.Debug
	mergeString(&cfg.Log.File, userCfg.Log.File)

	mergeString(&cfg.Store.Backend, userCfg.Store.Backend)
	mergeString(&cfg.Store.Dir, userCfg.Store.Dir)
	mergeString(&cfg.Store.RedisAddr, userCfg.Store.RedisAddr)
	mergeString(&cfg.Store.RedisPrefix, userCfg.Store.RedisPrefix)
	if userCfg.Store.RedisDB > 0 {
		cfg.Store.RedisDB = userCfg.Store.RedisDB
	}

	mergeString(&cfg.Server.Addr, userCfg.Server.Addr)

	mergeString(&cfg.Theme.Theme, userCfg.Theme.Theme)
	if cfg.Theme.Theme != "" {
		theme, err := LoadTheme(cfg.Theme.Theme)
		if err != nil {
			return cfg, err
		}
		mergeTheme(&cfg.Theme, theme)
	}
	mergeTheme(&cfg.Theme, userCfg.Theme)

	maps.Copy(cfg.Keymap, userCfg.Keymap)
	return cfg, nil
}

func mergeString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeTheme(dst *Theme, src Theme) {
	mergeString(&dst.Foreground, src.Foreground)
	mergeString(&dst.Background, src.Background)
	mergeString(&dst.StatuslineForeground, src.StatuslineForeground)
	mergeString(&dst.StatuslineBackground, src.StatuslineBackground)
	mergeString(&dst.SelectionForeground, src.SelectionForeground)
	mergeString(&dst.SelectionBackground, src.SelectionBackground)
	mergeString(&dst.HeaderForeground, src.HeaderForeground)
	mergeString(&dst.QuoteForeground, src.QuoteForeground)
	mergeString(&dst.CodeBackground, src.CodeBackground)
	mergeString(&dst.GutterForeground, src.GutterForeground)
	mergeString(&dst.DecorationForeground, src.DecorationForeground)
	mergeString(&dst.SyntaxKeyword, src.SyntaxKeyword)
	mergeString(&dst.SyntaxString, src.SyntaxString)
	mergeString(&dst.SyntaxComment, src.SyntaxComment)
	mergeString(&dst.SyntaxType, src.SyntaxType)
	mergeString(&dst.SyntaxFunction, src.SyntaxFunction)
	mergeString(&dst.SyntaxNumber, src.SyntaxNumber)
	mergeString(&dst.SyntaxConstant, src.SyntaxConstant)
	mergeString(&dst.SyntaxOperator, src.SyntaxOperator)
	mergeString(&dst.SyntaxPunctuation, src.SyntaxPunctuation)
	mergeString(&dst.SyntaxField, src.SyntaxField)
	mergeString(&dst.SyntaxBuiltin, src.SyntaxBuiltin)
	mergeString(&dst.SyntaxVariable, src.SyntaxVariable)
	if len(src.Entities) > 0 {
		if dst.Entities == nil {
			dst.Entities = map[string]string{}
		}
		maps.Copy(dst.Entities, src.Entities)
	}
}

func ThemePath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "theme", name+".toml"), nil
}

func LoadTheme(name string) (Theme, error) {
	path, err := ThemePath(name)
	if err != nil {
		return Theme{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, err
	}
	var wrap struct {
		Theme *Theme `toml:"theme"`
	}
	if _, err := toml.Decode(string(data), &wrap); err == nil && wrap.Theme != nil {
		return *wrap.Theme, nil
	}
	var t Theme
	if _, err := toml.Decode(string(data), &t); err != nil {
		return Theme{}, err
	}
	return t, nil
}

func ConfigDir() (string, error) {
	if v := os.Getenv("QDRAFT_CONFIG_HOME"); v != "" {
		return filepath.Clean(v), nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "qdraft"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "qdraft"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StoreDir is where the file store keeps documents: [store] dir, or
// "documents" under the config directory.
func (c Config) StoreDir() (string, error) {
	if c.Store.Dir != "" {
		return c.Store.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "documents"), nil
}
