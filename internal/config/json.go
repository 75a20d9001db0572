package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/theme"
)

// object is a JSON object that remembers key order, keeps values as raw bytes
// and records where each value sat in the decoded input.
type object struct {
	keys   []string
	values map[string]json.RawMessage
	spans  map[string]span
}

// span is the byte range [start, end) of a value in the decoded input.
type span struct {
	start, end int
}

func (o *object) get(key string) (json.RawMessage, bool) {
	raw, ok := o.values[key]
	return raw, ok
}

func (o *object) set(key string, raw json.RawMessage) {
	if o.values == nil {
		o.values = make(map[string]json.RawMessage)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = raw
}

func decodeObject(data []byte) (*object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	obj := &object{
		values: make(map[string]json.RawMessage),
		spans:  make(map[string]span),
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		end := int(dec.InputOffset())
		obj.spans[key] = span{start: end - len(raw), end: end}
		obj.set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}
	return obj, nil
}

// encode writes the object with two-space indentation below prefix, matching
// json.MarshalIndent for nested values.
func (o *object) encode(buf *bytes.Buffer, prefix string) error {
	if len(o.keys) == 0 {
		buf.WriteString("{}")
		return nil
	}
	inner := prefix + "  "
	buf.WriteString("{\n")
	for i, key := range o.keys {
		name, err := marshalNoEscape(key)
		if err != nil {
			return err
		}
		buf.WriteString(inner)
		buf.Write(name)
		buf.WriteString(": ")
		if err := json.Indent(buf, o.values[key], inner, "  "); err != nil {
			return fmt.Errorf("value of %q: %w", key, err)
		}
		if i < len(o.keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(prefix)
	buf.WriteByte('}')
	return nil
}

func (o *object) bytes() (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := o.encode(&buf, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// jsonBody rewrites only the theme value. Everything outside it is copied
// from the source bytes.
type jsonBody struct {
	src    []byte
	root   *object
	merged json.RawMessage
}

func decodeJSON(data []byte) (codec, error) {
	root, err := decodeObject(data)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeConfig, err, "parse json")
	}
	return &jsonBody{src: data, root: root}, nil
}

func (b *jsonBody) section() (*object, error) {
	raw, ok := b.root.get(ThemeKey)
	if !ok {
		return nil, missingTheme("is missing")
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, missingTheme("is not a mapping")
	}
	return obj, nil
}

func (b *jsonBody) theme() (theme.Mapping, error) {
	sec, err := b.section()
	if err != nil {
		return theme.Mapping{}, err
	}
	var m theme.Mapping
	for _, key := range sec.keys {
		var v any
		if err := json.Unmarshal(sec.values[key], &v); err != nil {
			return theme.Mapping{}, errdef.Wrap(errdef.CodeConfig, err, "theme key %q", key)
		}
		e, err := decodeThemeValue(key, v)
		if err != nil {
			return theme.Mapping{}, err
		}
		m.Set(key, e)
	}
	return m, nil
}

func (b *jsonBody) merge(m theme.Mapping) (MergeStats, error) {
	var stats MergeStats
	sec, err := b.section()
	if err != nil {
		return stats, err
	}
	for key, e := range m.All() {
		raw, err := entryJSON(e)
		if err != nil {
			return MergeStats{}, errdef.Wrap(errdef.CodeConfig, err, "encode theme key %q", key)
		}
		prev, ok := sec.get(key)
		switch {
		case !ok:
			stats.Added++
		case sameJSON(prev, raw):
			stats.Unchanged++
			continue
		default:
			stats.Updated++
		}
		sec.set(key, raw)
	}
	if !stats.Changed() {
		return stats, nil
	}
	var buf bytes.Buffer
	if err := sec.encode(&buf, lineIndent(b.src, b.root.spans[ThemeKey].start)); err != nil {
		return MergeStats{}, errdef.Wrap(errdef.CodeConfig, err, "encode theme section")
	}
	b.merged = buf.Bytes()
	b.root.set(ThemeKey, b.merged)
	return stats, nil
}

func (b *jsonBody) encode() ([]byte, error) {
	if b.merged == nil {
		return bytes.Clone(b.src), nil
	}
	sp := b.root.spans[ThemeKey]
	out := make([]byte, 0, len(b.src)-(sp.end-sp.start)+len(b.merged))
	out = append(out, b.src[:sp.start]...)
	out = append(out, b.merged...)
	out = append(out, b.src[sp.end:]...)
	return out, nil
}

// lineIndent returns the leading whitespace of the line containing offset.
func lineIndent(src []byte, offset int) string {
	lineStart := bytes.LastIndexByte(src[:offset], '\n') + 1
	line := src[lineStart:offset]
	n := 0
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	return string(line[:n])
}

func entryJSON(e theme.Entry) (json.RawMessage, error) {
	if !e.IsObject() {
		return marshalNoEscape(e.Text)
	}
	obj := &object{}
	for _, f := range e.Fields() {
		raw, err := marshalNoEscape(f.Value)
		if err != nil {
			return nil, err
		}
		obj.set(f.Key, raw)
	}
	return obj.bytes()
}

func sameJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
