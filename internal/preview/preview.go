// Package preview renders a theme section for the terminal: one swatch line
// per key and a syntax-highlighted code sample.
package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/unkn0wn-root/themesync/internal/theme"
)

const (
	swatchWidth    = 4
	maxNameColumn  = 32
	sampleLanguage = "lua"
	styleName      = "themesync"
)

// DefaultSample is shown when no sample file is given.
const DefaultSample = `-- onedark light preview
local M = {}

function M.setup(opts)
  local count = 42
  if opts.enabled and count > 0 then
    return "enabled"
  end
  return nil
end

return M
`

// tokenGroups maps theme keys to the chroma token they colour. The first
// key present in the theme wins.
var tokenGroups = []struct {
	token  chroma.TokenType
	groups []string
}{
	{chroma.Comment, []string{"comment"}},
	{chroma.Keyword, []string{"keyword"}},
	{chroma.KeywordType, []string{"type"}},
	{chroma.NameFunction, []string{"function", "method"}},
	{chroma.LiteralString, []string{"string"}},
	{chroma.LiteralNumber, []string{"number"}},
	{chroma.NameConstant, []string{"constant", "constant.builtin"}},
	{chroma.NameBuiltin, []string{"function.builtin", "variable.builtin"}},
	{chroma.NameAttribute, []string{"property", "field"}},
	{chroma.Operator, []string{"operator"}},
	{chroma.Punctuation, []string{"punctuation.delimiter", "punctuation.bracket"}},
	{chroma.Name, []string{"variable"}},
}

type Renderer struct {
	lg      *lipgloss.Renderer
	profile termenv.Profile
}

func NewRenderer(w io.Writer, profile termenv.Profile) *Renderer {
	lg := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	lg.SetColorProfile(profile)
	return &Renderer{lg: lg, profile: profile}
}

// Swatches renders every key of m in order. Keys whose chain cannot be
// resolved make the whole call fail.
func (r *Renderer) Swatches(m theme.Mapping) (string, error) {
	resolved, err := theme.Resolve(m)
	if err != nil {
		return "", err
	}

	width := 0
	for _, key := range m.Keys() {
		if w := runewidth.StringWidth(key); w > width {
			width = w
		}
	}
	if width > maxNameColumn {
		width = maxNameColumn
	}

	label := r.lg.NewStyle().Bold(true)
	muted := r.lg.NewStyle().Faint(true)

	var b strings.Builder
	for key, entry := range m.All() {
		st := resolved[key]
		name := runewidth.Truncate(key, width, "…")
		b.WriteString(label.Render(runewidth.FillRight(name, width)))
		b.WriteString(" ")
		b.WriteString(r.swatch(st))
		b.WriteString(" ")
		b.WriteString(r.sampleText(st).Render(fmt.Sprintf("%-7s", st.Color)))
		if desc := describe(entry); desc != "" {
			b.WriteString(" ")
			b.WriteString(muted.Render(desc))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (r *Renderer) swatch(st theme.Style) string {
	block := strings.Repeat(" ", swatchWidth)
	if st.Color == "" {
		return r.lg.NewStyle().Render(strings.Repeat("·", swatchWidth))
	}
	return r.lg.NewStyle().Background(lipgloss.Color(st.Color)).Render(block)
}

func (r *Renderer) sampleText(st theme.Style) lipgloss.Style {
	s := r.lg.NewStyle().
		Italic(st.Flags.Italic).
		Bold(st.Flags.Bold).
		Underline(st.Flags.Underline).
		Strikethrough(st.Flags.Strikethrough)
	if st.Color != "" {
		s = s.Foreground(lipgloss.Color(st.Color))
	}
	return s
}

func describe(e theme.Entry) string {
	switch e.Kind() {
	case theme.KindRef:
		return "→ " + e.RefName()
	case theme.KindLink:
		return e.String()
	default:
		return ""
	}
}

// Sample highlights code with a chroma style built from m.
func (r *Renderer) Sample(w io.Writer, m theme.Mapping, code string) error {
	resolved, err := theme.Resolve(m)
	if err != nil {
		return err
	}
	style, err := ChromaStyle(resolved)
	if err != nil {
		return err
	}

	lexer := lexers.Get(sampleLanguage)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(nil, code)
	if err != nil {
		return fmt.Errorf("tokenise sample: %w", err)
	}
	return formatterFor(r.profile).Format(w, style, it)
}

// ChromaStyle converts resolved theme styles into a chroma style. Groups
// without a matching theme key fall back to the plain text colour.
func ChromaStyle(resolved map[string]theme.Style) (*chroma.Style, error) {
	entries := chroma.StyleEntries{}
	if fg, ok := resolved["fg"]; ok && isHex(fg.Color) {
		bg := ""
		if b, ok := resolved["bg0"]; ok && isHex(b.Color) {
			bg = " bg:" + b.Color
		}
		entries[chroma.Text] = fg.Color
		entries[chroma.Background] = strings.TrimSpace(fg.Color + bg)
	}
	for _, tg := range tokenGroups {
		for _, group := range tg.groups {
			st, ok := resolved[group]
			if !ok || !isHex(st.Color) {
				continue
			}
			entries[tg.token] = styleEntry(st)
			break
		}
	}
	return chroma.NewStyle(styleName, entries)
}

// isHex filters out values such as "none" that chroma refuses to parse.
func isHex(c string) bool {
	return len(c) == 7 && strings.HasPrefix(c, "#")
}

// chroma styles cannot express strikethrough.
func styleEntry(st theme.Style) string {
	parts := make([]string, 0, 4)
	if st.Flags.Bold {
		parts = append(parts, "bold")
	}
	if st.Flags.Italic {
		parts = append(parts, "italic")
	}
	if st.Flags.Underline {
		parts = append(parts, "underline")
	}
	parts = append(parts, st.Color)
	return strings.Join(parts, " ")
}

func formatterFor(profile termenv.Profile) chroma.Formatter {
	name := "noop"
	switch profile {
	case termenv.TrueColor:
		name = "terminal16m"
	case termenv.ANSI256:
		name = "terminal256"
	case termenv.ANSI:
		name = "terminal16"
	}
	if f := formatters.Get(name); f != nil {
		return f
	}
	return formatters.Fallback
}
