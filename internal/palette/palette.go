// Package palette extracts named colors from the light variant of an
// onedark.nvim palette.lua document.
package palette

import (
	"regexp"
	"strings"

	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/theme"
)

// Marker opens the light sub-block; the block ends at the next closing brace.
const Marker = "light = {"

var colorLine = regexp.MustCompile(`(\w+) = "(#[a-fA-F0-9]{6})",`)

type Color struct {
	Name string
	Hex  string
}

// Palette keeps colors in scan order.
type Palette []Color

// Mapping converts the palette into base theme entries.
func (p Palette) Mapping() theme.Mapping {
	var m theme.Mapping
	for _, c := range p {
		m.Set(c.Name, theme.Hex(c.Hex))
	}
	return m
}

// Block returns the text between Marker and the first "}" after it. Nested
// braces inside the block are not supported.
func Block(text string) (string, error) {
	_, rest, ok := strings.Cut(text, Marker)
	if !ok {
		return "", errdef.New(errdef.CodeSourceFormat, "palette: marker %q not found", Marker)
	}
	block, _, _ := strings.Cut(rest, "}")
	return block, nil
}

// Extract returns every `NAME = "#RRGGBB",` pair inside the light block.
// Lines that do not match are ignored.
func Extract(text string) (Palette, error) {
	block, err := Block(text)
	if err != nil {
		return nil, err
	}

	matches := colorLine.FindAllStringSubmatch(block, -1)
	out := make(Palette, 0, len(matches))
	seen := make(map[string]int, len(matches))
	for _, m := range matches {
		c := Color{Name: m[1], Hex: m[2]}
		if idx, ok := seen[c.Name]; ok {
			out[idx] = c
			continue
		}
		seen[c.Name] = len(out)
		out = append(out, c)
	}
	return out, nil
}
