package theme

import (
	"strings"

	"github.com/unkn0wn-root/themesync/internal/errdef"
)

// Style is a fully resolved entry: a concrete color plus flags.
type Style struct {
	Color string
	Flags Flags
}

// Resolve follows every "$name" and link chain down to a concrete color.
// A reference inherits the target unchanged; a link keeps its own color when
// set and ORs its flags with the target's.
func Resolve(m Mapping) (map[string]Style, error) {
	r := resolver{m: m, done: make(map[string]Style, m.Len()), active: map[string]bool{}}
	for key := range m.All() {
		if _, err := r.resolve(key, nil); err != nil {
			return nil, err
		}
	}
	return r.done, nil
}

type resolver struct {
	m      Mapping
	done   map[string]Style
	active map[string]bool
}

func (r *resolver) resolve(key string, path []string) (Style, error) {
	if s, ok := r.done[key]; ok {
		return s, nil
	}
	e, ok := r.m.Get(key)
	if !ok {
		from := ""
		if len(path) > 0 {
			from = path[len(path)-1]
		}
		return Style{}, errdef.New(errdef.CodeResolve, "%q links to unknown key %q", from, key)
	}
	if r.active[key] {
		return Style{}, errdef.New(
			errdef.CodeResolve,
			"link cycle: %s",
			strings.Join(append(path, key), " -> "),
		)
	}
	r.active[key] = true
	defer delete(r.active, key)

	path = append(path, key)
	var out Style
	switch e.Kind() {
	case KindHex:
		out = Style{Color: e.Text}
	case KindRef:
		target, err := r.resolve(e.RefName(), path)
		if err != nil {
			return Style{}, err
		}
		out = target
	case KindLink:
		target, err := r.resolve(e.Link, path)
		if err != nil {
			return Style{}, err
		}
		out = Style{Color: target.Color, Flags: e.Flags.or(target.Flags)}
		if e.Color != "" {
			out.Color = e.Color
		}
	default:
		out = Style{Color: e.Color, Flags: e.Flags}
	}
	r.done[key] = out
	return out, nil
}
