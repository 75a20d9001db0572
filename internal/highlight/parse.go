// Package highlight turns onedark.nvim highlights.lua group definitions into
// theme entries.
//
// Parsing is split in two stages: Scan recognizes the supported shapes and
// returns tagged definitions, Resolve applies the style and color tables.
package highlight

import (
	"regexp"

	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/theme"
)

type Form int

const (
	// ["@name"] = colors.Color
	DirectColor Form = iota + 1
	// ["@name"] = {fg = c.Color, fmt = cfg.code_style.class}
	StyleClass
	// ["@name"] = {fg = c.Color, fmt = "literal"}
	LiteralStyle
)

func (f Form) String() string {
	switch f {
	case DirectColor:
		return "direct"
	case StyleClass:
		return "class"
	case LiteralStyle:
		return "literal"
	default:
		return "unknown"
	}
}

type Definition struct {
	Group   string
	Form    Form
	Color   string
	Class   string
	Literal string
}

const (
	groupName = iota + 1
	directColor
	fgColor
	className
	doubleQuoted
	singleQuoted
)

var groupPattern = regexp.MustCompile(
	`\["@([\w.]+)"\]\s*=\s*(?:` +
		`colors\.(\w+)` +
		`|\{fg\s*=\s*c\.(\w+),\s*fmt\s*=\s*(?:cfg.code_style.(\w+)|"([^"\n]*)"|'([^'\n]*)')\}` +
		`)`,
)

// Scan returns every recognized definition in source order. Anything else in
// the text is skipped.
func Scan(text string) []Definition {
	idx := groupPattern.FindAllStringSubmatchIndex(text, -1)
	defs := make([]Definition, 0, len(idx))
	for _, loc := range idx {
		group := func(n int) (string, bool) {
			if loc[2*n] < 0 {
				return "", false
			}
			return text[loc[2*n]:loc[2*n+1]], true
		}

		name, _ := group(groupName)
		d := Definition{Group: name}
		if c, ok := group(directColor); ok {
			d.Form = DirectColor
			d.Color = c
		} else {
			d.Color, _ = group(fgColor)
			if class, ok := group(className); ok {
				d.Form = StyleClass
				d.Class = class
			} else if lit, ok := group(doubleQuoted); ok {
				d.Form = LiteralStyle
				d.Literal = lit
			} else {
				d.Form = LiteralStyle
				d.Literal, _ = group(singleQuoted)
			}
		}
		defs = append(defs, d)
	}
	return defs
}

// Entry applies the decision table to a single definition.
func (d Definition) Entry() (theme.Entry, error) {
	color, ok := CanonicalColor(d.Color)
	if !ok {
		return theme.Entry{}, errdef.New(
			errdef.CodeUnknownColor,
			"highlight %q: unknown color name %q",
			d.Group,
			d.Color,
		)
	}

	switch d.Form {
	case DirectColor:
		return theme.Ref(color), nil
	case StyleClass:
		attr, err := ResolveClass(d.Class)
		if err != nil {
			return theme.Entry{}, errdef.Wrap(errdef.CodeUnknownStyle, err, "highlight %q", d.Group)
		}
		if attr == theme.AttrNone {
			return theme.Ref(color), nil
		}
		return theme.LinkTo(color, attr), nil
	case LiteralStyle:
		if !ResolveLiteral(d.Literal) {
			return theme.Ref(color), nil
		}
		return theme.LinkTo(color, theme.Attr(d.Literal)), nil
	default:
		return theme.Entry{}, errdef.New(errdef.CodeSourceFormat, "highlight %q: unknown form", d.Group)
	}
}

// Resolve converts definitions into a mapping. The first failing definition
// aborts the whole conversion.
func Resolve(defs []Definition) (theme.Mapping, error) {
	var m theme.Mapping
	for _, d := range defs {
		e, err := d.Entry()
		if err != nil {
			return theme.Mapping{}, err
		}
		m.Set(d.Group, e)
	}
	return m, nil
}

func Parse(text string) (theme.Mapping, error) {
	return Resolve(Scan(text))
}
