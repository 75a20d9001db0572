package config

import (
	"bytes"
	"reflect"
	"regexp"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/theme"
)

var (
	tomlHeader      = regexp.MustCompile(`^[ \t]*\[\[?[ \t]*[A-Za-z0-9_"'-][^\]\n]*\]\]?[ \t]*(#.*)?$`)
	tomlThemeHeader = regexp.MustCompile(`^[ \t]*\[\[?[ \t]*theme[ \t]*[.\]]`)
)

// tomlBody rewrites the [theme] table blocks in place and copies every other
// line from the source. A theme written as an inline or dotted table has no
// block to replace, so the whole document is re-marshalled instead.
type tomlBody struct {
	src   []byte
	root  map[string]any
	dirty bool
}

func decodeTOML(data []byte) (codec, error) {
	root := map[string]any{}
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, errdef.Wrap(errdef.CodeConfig, err, "parse toml")
	}
	return &tomlBody{src: data, root: root}, nil
}

func (b *tomlBody) section() (map[string]any, error) {
	raw, ok := b.root[ThemeKey]
	if !ok {
		return nil, missingTheme("is missing")
	}
	sec, ok := raw.(map[string]any)
	if !ok {
		return nil, missingTheme("is not a table")
	}
	return sec, nil
}

func (b *tomlBody) theme() (theme.Mapping, error) {
	sec, err := b.section()
	if err != nil {
		return theme.Mapping{}, err
	}
	keys := make([]string, 0, len(sec))
	for k := range sec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var m theme.Mapping
	for _, key := range keys {
		e, err := decodeThemeValue(key, sec[key])
		if err != nil {
			return theme.Mapping{}, err
		}
		m.Set(key, e)
	}
	return m, nil
}

func (b *tomlBody) merge(m theme.Mapping) (MergeStats, error) {
	var stats MergeStats
	sec, err := b.section()
	if err != nil {
		return stats, err
	}
	for key, e := range m.All() {
		next := e.Value()
		prev, ok := sec[key]
		switch {
		case !ok:
			stats.Added++
		case reflect.DeepEqual(prev, next):
			stats.Unchanged++
			continue
		default:
			stats.Updated++
		}
		sec[key] = next
	}
	if stats.Changed() {
		b.dirty = true
	}
	return stats, nil
}

func (b *tomlBody) encode() ([]byte, error) {
	if !b.dirty {
		return bytes.Clone(b.src), nil
	}
	blocks := themeBlocks(b.src)
	if len(blocks) == 0 {
		return toml.Marshal(b.root)
	}
	section, err := toml.Marshal(map[string]any{ThemeKey: b.root[ThemeKey]})
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	last := 0
	for i, sp := range blocks {
		out.Write(b.src[last:sp.start])
		if i == 0 {
			out.Write(section)
		}
		last = sp.end
	}
	out.Write(b.src[last:])
	return out.Bytes(), nil
}

// themeBlocks returns the byte ranges of every [theme] and [theme.*] table.
// A block runs from its header to the next table header, minus the blank and
// comment lines directly above that header.
func themeBlocks(src []byte) []span {
	type line struct {
		start, end int
		text       []byte
	}
	var lines []line
	for off := 0; off < len(src); {
		end := bytes.IndexByte(src[off:], '\n')
		if end < 0 {
			end = len(src)
		} else {
			end += off + 1
		}
		lines = append(lines, line{start: off, end: end, text: bytes.TrimRight(src[off:end], "\r\n")})
		off = end
	}

	var blocks []span
	for i := 0; i < len(lines); i++ {
		if !tomlThemeHeader.Match(lines[i].text) {
			continue
		}
		j := i + 1
		for j < len(lines) && !tomlHeader.Match(lines[j].text) {
			j++
		}
		k := j
		for k > i+1 && isTOMLTrivia(lines[k-1].text) {
			k--
		}
		blocks = append(blocks, span{start: lines[i].start, end: lines[k-1].end})
		i = j - 1
	}
	return blocks
}

func isTOMLTrivia(text []byte) bool {
	t := bytes.TrimSpace(text)
	return len(t) == 0 || t[0] == '#'
}
