package highlight

// colorAliases maps the capitalized names used by highlights.lua to the
// snake_case keys of the palette.
var colorAliases = map[string]string{
	"Fg":        "fg",
	"LightGrey": "light_grey",
	"Grey":      "grey",
	"Red":       "red",
	"Cyan":      "cyan",
	"Yellow":    "yellow",
	"Orange":    "orange",
	"Green":     "green",
	"Blue":      "blue",
	"Purple":    "purple",
}

// CanonicalColor maps a highlights.lua color name to its palette key. Names
// already in palette form, such as c.grey, map to themselves.
func CanonicalColor(name string) (string, bool) {
	if alias, ok := colorAliases[name]; ok {
		return alias, true
	}
	for _, key := range colorAliases {
		if key == name {
			return key, true
		}
	}
	return "", false
}
