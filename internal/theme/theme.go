package theme

import (
	"fmt"
	"sort"
	"strings"
)

// RefSigil prefixes a color reference such as "$fg".
const RefSigil = "$"

type Attr string

const (
	AttrNone          Attr = ""
	AttrItalic        Attr = "italic"
	AttrBold          Attr = "bold"
	AttrUnderline     Attr = "underline"
	AttrStrikethrough Attr = "strikethrough"
)

// Attrs lists the style attributes in their persisted order.
func Attrs() []Attr {
	return []Attr{AttrItalic, AttrBold, AttrUnderline, AttrStrikethrough}
}

type Kind int

const (
	KindHex Kind = iota
	KindRef
	KindLink
	KindStyle
)

func (k Kind) String() string {
	switch k {
	case KindHex:
		return "hex"
	case KindRef:
		return "ref"
	case KindLink:
		return "link"
	case KindStyle:
		return "style"
	default:
		return "unknown"
	}
}

type Flags struct {
	Italic        bool
	Bold          bool
	Underline     bool
	Strikethrough bool
}

func (f Flags) Has(a Attr) bool {
	switch a {
	case AttrItalic:
		return f.Italic
	case AttrBold:
		return f.Bold
	case AttrUnderline:
		return f.Underline
	case AttrStrikethrough:
		return f.Strikethrough
	default:
		return false
	}
}

func (f *Flags) set(a Attr) bool {
	switch a {
	case AttrItalic:
		f.Italic = true
	case AttrBold:
		f.Bold = true
	case AttrUnderline:
		f.Underline = true
	case AttrStrikethrough:
		f.Strikethrough = true
	default:
		return false
	}
	return true
}

func (f Flags) or(o Flags) Flags {
	return Flags{
		Italic:        f.Italic || o.Italic,
		Bold:          f.Bold || o.Bold,
		Underline:     f.Underline || o.Underline,
		Strikethrough: f.Strikethrough || o.Strikethrough,
	}
}

// Entry is one value of a theme section. The string form ("#383a42" or
// "$fg") lives in Text; the object form uses Color, Link and Flags.
type Entry struct {
	Text  string
	Color string
	Link  string
	Flags Flags
}

func Hex(color string) Entry {
	return Entry{Text: color}
}

func Ref(name string) Entry {
	return Entry{Text: RefSigil + name}
}

// LinkTo builds a link entry. AttrNone yields a bare link.
func LinkTo(target string, attr Attr) Entry {
	e := Entry{Link: target}
	e.Flags.set(attr)
	return e
}

func (e Entry) IsObject() bool {
	return e.Text == ""
}

func (e Entry) Kind() Kind {
	switch {
	case !e.IsObject() && strings.HasPrefix(e.Text, RefSigil):
		return KindRef
	case !e.IsObject():
		return KindHex
	case e.Link != "":
		return KindLink
	default:
		return KindStyle
	}
}

// RefName returns the referenced key of a KindRef entry.
func (e Entry) RefName() string {
	if e.Kind() != KindRef {
		return ""
	}
	return strings.TrimPrefix(e.Text, RefSigil)
}

type Field struct {
	Key   string
	Value any
}

// Fields returns the object form in persisted key order.
func (e Entry) Fields() []Field {
	if !e.IsObject() {
		return nil
	}
	var out []Field
	if e.Color != "" {
		out = append(out, Field{Key: "color", Value: e.Color})
	}
	if e.Link != "" {
		out = append(out, Field{Key: "link", Value: e.Link})
	}
	for _, a := range Attrs() {
		if e.Flags.Has(a) {
			out = append(out, Field{Key: string(a), Value: true})
		}
	}
	return out
}

// Value returns the generic encoding used by map-based codecs.
func (e Entry) Value() any {
	if !e.IsObject() {
		return e.Text
	}
	fields := e.Fields()
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func (e Entry) String() string {
	if !e.IsObject() {
		return e.Text
	}
	fields := e.Fields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// DecodeEntry accepts the generic values produced by the JSON, TOML and
// YAML decoders.
func DecodeEntry(v any) (Entry, error) {
	switch val := v.(type) {
	case string:
		if val == "" {
			return Entry{}, fmt.Errorf("empty theme value")
		}
		return Entry{Text: val}, nil
	case map[string]any:
		var e Entry
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			raw := val[k]
			switch k {
			case "color", "link":
				s, ok := raw.(string)
				if !ok {
					return Entry{}, fmt.Errorf("%s: expected string, got %T", k, raw)
				}
				if k == "color" {
					e.Color = s
				} else {
					e.Link = s
				}
			default:
				b, ok := raw.(bool)
				if !ok {
					return Entry{}, fmt.Errorf("%s: expected bool, got %T", k, raw)
				}
				if !b {
					continue
				}
				if !e.Flags.set(Attr(k)) {
					return Entry{}, fmt.Errorf("unsupported style attribute %q", k)
				}
			}
		}
		return e, nil
	default:
		return Entry{}, fmt.Errorf("unsupported theme value type %T", v)
	}
}
