package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Language binds the names a code block may carry in data.language to a
// highlighting grammar.
type Language struct {
	Name    string   `toml:"name"`
	Aliases []string `toml:"aliases"`
	Grammar string   `toml:"grammar"`
}

type Languages struct {
	Languages []Language `toml:"language"`
}

func DefaultLanguages() Languages {
	return Languages{Languages: []Language{
		{Name: "go", Aliases: []string{"golang"}, Grammar: "go"},
		{Name: "json", Aliases: []string{"jsonc"}, Grammar: "json"},
		{Name: "yaml", Aliases: []string{"yml"}, Grammar: "yaml"},
		{Name: "toml", Grammar: "toml"},
		{Name: "bash", Aliases: []string{"sh", "shell", "zsh"}, Grammar: "bash"},
	}}
}

// Match returns the language whose name or alias equals name, ignoring case.
func (l Languages) Match(name string) *Language {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}
	for i := range l.Languages {
		lang := &l.Languages[i]
		if strings.EqualFold(lang.Name, name) {
			return lang
		}
		if slices.ContainsFunc(lang.Aliases, func(a string) bool { return strings.EqualFold(a, name) }) {
			return lang
		}
	}
	return nil
}

// LoadLanguages reads languages.toml. Entries replace a default of the same
// name; new names are appended.
func LoadLanguages() (Languages, error) {
	langs := DefaultLanguages()
	path, err := LanguagesPath()
	if err != nil {
		return langs, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return langs, nil
		}
		return langs, err
	}
	var user Languages
	if _, err := toml.Decode(string(data), &user); err != nil {
		return langs, err
	}
	for _, lang := range user.Languages {
		if lang.Name == "" {
			continue
		}
		if lang.Grammar == "" {
			lang.Grammar = lang.Name
		}
		i := slices.IndexFunc(langs.Languages, func(l Language) bool { return l.Name == lang.Name })
		if i >= 0 {
			langs.Languages[i] = lang
		} else {
			langs.Languages = append(langs.Languages, lang)
		}
	}
	return langs, nil
}

func LanguagesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "languages.toml"), nil
}
