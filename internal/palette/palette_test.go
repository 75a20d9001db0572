package palette

import (
	"testing"

	"github.com/MakeNowJust/heredoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/theme"
)

var sample = heredoc.Doc(`
	local colors = {
		dark = {
			black = "#181a1f",
			fg = "#abb2bf",
		},
		light = {
			black = "#101012",
			bg0 = "#fafafa",
			fg = "#383a42",
			purple = "#A626A4",
			light_grey = "#818387",
			bad = "#12345",
			none = "none",
			Fg = "#ABCDEF",
		},
		warm = {
			fg = "#000000",
		},
	}
	return colors
`)

func TestExtractLightBlockOnly(t *testing.T) {
	p, err := Extract(sample)
	require.NoError(t, err)

	assert.Equal(t, Palette{
		{Name: "black", Hex: "#101012"},
		{Name: "bg0", Hex: "#fafafa"},
		{Name: "fg", Hex: "#383a42"},
		{Name: "purple", Hex: "#A626A4"},
		{Name: "light_grey", Hex: "#818387"},
		{Name: "Fg", Hex: "#ABCDEF"},
	}, p)
}

func TestExtractMissingMarker(t *testing.T) {
	_, err := Extract(`dark = { fg = "#abb2bf", }`)
	require.Error(t, err)
	assert.Equal(t, errdef.CodeSourceFormat, errdef.CodeOf(err))
}

func TestExtractDuplicateKeepsFirstPositionLastValue(t *testing.T) {
	p, err := Extract(`light = { fg = "#111111", red = "#e45649", fg = "#222222", }`)
	require.NoError(t, err)
	assert.Equal(t, Palette{
		{Name: "fg", Hex: "#222222"},
		{Name: "red", Hex: "#e45649"},
	}, p)
}

func TestExtractUnterminatedBlockReadsToEnd(t *testing.T) {
	p, err := Extract(`light = { fg = "#383a42",`)
	require.NoError(t, err)
	assert.Len(t, p, 1)
}

func TestPaletteMapping(t *testing.T) {
	m := Palette{{Name: "fg", Hex: "#383a42"}, {Name: "red", Hex: "#e45649"}}.Mapping()
	assert.Equal(t, []string{"fg", "red"}, m.Keys())
	fg, ok := m.Get("fg")
	require.True(t, ok)
	assert.Equal(t, theme.Hex("#383a42"), fg)
}
