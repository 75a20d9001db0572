package highlight

import (
	"slices"

	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/theme"
)

// codeStyle mirrors the default cfg.code_style of onedark.nvim. AttrNone
// means the class carries no style.
var codeStyle = map[string]theme.Attr{
	"comments":  theme.AttrItalic,
	"keywords":  theme.AttrNone,
	"functions": theme.AttrNone,
	"strings":   theme.AttrNone,
	"variables": theme.AttrNone,
}

// ResolveClass maps a cfg.code_style class to its attribute. An unknown
// class is an error; it is never treated as "no style".
func ResolveClass(class string) (theme.Attr, error) {
	attr, ok := codeStyle[class]
	if !ok {
		return theme.AttrNone, errdef.New(errdef.CodeUnknownStyle, "unknown style class %q", class)
	}
	return attr, nil
}

func ResolveLiteral(literal string) bool {
	return slices.Contains(theme.Attrs(), theme.Attr(literal))
}
