// Package theme lists the color themes the terminal UI ships with.
package theme

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Theme represents a UI theme
type Theme struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// names is the shipped catalog in display order.
var names = []string{
	"catppuccin-mocha", "dracula", "nord", "one-dark", "gruvbox-dark",
	"tokyo-night", "solarized-dark", "vs-code-dark", "monokai", "github-dark",
	"cyberpunk", "matrix", "synthwave", "vaporwave", "neon-tokyo",
	"hacker", "inferno", "toxic", "ultraviolet", "bloodmoon", "abyss",
	"rose-pine", "everforest", "kanagawa", "palenight", "material-ocean",
	"horizon", "andromeda", "moonlight", "night-owl", "poimandres", "vitesse-dark",
}

// Default is the theme a fresh install starts with.
const Default = "catppuccin-mocha"

var index = func() map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}()

// Names returns the theme ids in display order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Has reports whether id is a shipped theme.
func Has(id string) bool {
	_, ok := index[id]
	return ok
}

// List returns every theme with a display name.
func List() []Theme {
	title := cases.Title(language.English)
	themes := make([]Theme, 0, len(names))
	for _, id := range names {
		themes = append(themes, Theme{
			ID:   id,
			Name: title.String(strings.ReplaceAll(id, "-", " ")),
			Type: "dark",
		})
	}
	return themes
}
