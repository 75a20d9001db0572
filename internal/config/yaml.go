package config

import (
	"bytes"
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/theme"
)

// YAML documents are edited as a node tree, which keeps key order and
// comments of everything outside the merged keys.
type yamlBody struct {
	doc yaml.Node
}

func decodeYAML(data []byte) (codec, error) {
	b := &yamlBody{}
	if err := yaml.Unmarshal(data, &b.doc); err != nil {
		return nil, errdef.Wrap(errdef.CodeConfig, err, "parse yaml")
	}
	if b.doc.Kind != yaml.DocumentNode || len(b.doc.Content) == 0 ||
		b.doc.Content[0].Kind != yaml.MappingNode {
		return nil, errdef.New(errdef.CodeConfig, "parse yaml: top level is not a mapping")
	}
	return b, nil
}

func (b *yamlBody) section() (*yaml.Node, error) {
	node := lookup(b.doc.Content[0], ThemeKey)
	if node == nil {
		return nil, missingTheme("is missing")
	}
	if node.Kind != yaml.MappingNode {
		return nil, missingTheme("is not a mapping")
	}
	return node, nil
}

func (b *yamlBody) theme() (theme.Mapping, error) {
	sec, err := b.section()
	if err != nil {
		return theme.Mapping{}, err
	}
	var m theme.Mapping
	for i := 0; i+1 < len(sec.Content); i += 2 {
		key := sec.Content[i].Value
		var v any
		if err := sec.Content[i+1].Decode(&v); err != nil {
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

func (b *yamlBody) merge(m theme.Mapping) (MergeStats, error) {
	var stats MergeStats
	sec, err := b.section()
	if err != nil {
		return stats, err
	}
	for key, e := range m.All() {
		next := entryNode(e)
		prev := lookup(sec, key)
		if prev == nil {
			stats.Added++
			sec.Content = append(sec.Content, scalar(key), next)
			continue
		}
		var cur any
		if err := prev.Decode(&cur); err == nil && reflect.DeepEqual(cur, e.Value()) {
			stats.Unchanged++
			continue
		}
		stats.Updated++
		next.HeadComment, next.LineComment, next.FootComment =
			prev.HeadComment, prev.LineComment, prev.FootComment
		*prev = *next
	}
	return stats, nil
}

func (b *yamlBody) encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&b.doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// lookup returns the value node for key in a mapping node.
func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func entryNode(e theme.Entry) *yaml.Node {
	if !e.IsObject() {
		n := scalar(e.Text)
		n.Style = yaml.DoubleQuotedStyle
		return n
	}
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range e.Fields() {
		var v *yaml.Node
		switch val := f.Value.(type) {
		case bool:
			v = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"}
			if !val {
				v.Value = "false"
			}
		case string:
			v = scalar(val)
		}
		n.Content = append(n.Content, scalar(f.Key), v)
	}
	return n
}
