package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/unkn0wn-root/themesync/internal/errdef"
	"github.com/unkn0wn-root/themesync/internal/theme"
)

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ThemeKey names the section overwritten by MergeTheme.
const ThemeKey = "theme"

type Format string

// FormatFromPath infers the document format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errdef.New(errdef.CodeConfig, "unsupported config extension %q", filepath.Ext(path))
	}
}

// MergeStats counts what MergeTheme did to the theme section.
type MergeStats struct {
	Added     int
	Updated   int
	Unchanged int
}

func (s MergeStats) Changed() bool {
	return s.Added > 0 || s.Updated > 0
}

type codec interface {
	theme() (theme.Mapping, error)
	merge(m theme.Mapping) (MergeStats, error)
	encode() ([]byte, error)
}

// Document is a configuration file whose theme section can be overlaid.
// Every other section is carried through untouched.
type Document struct {
	Path   string
	Format Format
	body   codec
	raw    []byte
}

func Load(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errdef.Wrap(errdef.CodeFilesystem, err, "config %q does not exist", path)
		}
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read config %q", path)
	}
	doc, err := Decode(data, format)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeOf(err), err, "config %q", path)
	}
	doc.Path = path
	return doc, nil
}

// Original returns the bytes the document was decoded from.
func (d *Document) Original() []byte {
	return d.raw
}

func Decode(data []byte, format Format) (*Document, error) {
	var (
		body codec
		err  error
	)
	switch format {
	case FormatJSON:
		body, err = decodeJSON(data)
	case FormatTOML:
		body, err = decodeTOML(data)
	case FormatYAML:
		body, err = decodeYAML(data)
	default:
		return nil, errdef.New(errdef.CodeConfig, "unsupported config format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &Document{Format: format, body: body, raw: data}, nil
}

// Theme returns the current theme section.
func (d *Document) Theme() (theme.Mapping, error) {
	return d.body.theme()
}

// MergeTheme inserts or overwrites every key of m in the theme section. Keys
// absent from m are left alone. A document without a theme mapping is
// rejected and left unmodified.
func (d *Document) MergeTheme(m theme.Mapping) (MergeStats, error) {
	return d.body.merge(m)
}

func (d *Document) Encode() ([]byte, error) {
	data, err := d.body.encode()
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeConfig, err, "encode %s config", d.Format)
	}
	return data, nil
}

func (d *Document) Save() error {
	if d.Path == "" {
		return errdef.New(errdef.CodeConfig, "config path is empty")
	}
	data, err := d.Encode()
	if err != nil {
		return err
	}
	perm := fs.FileMode(0o644)
	if info, statErr := os.Stat(d.Path); statErr == nil {
		perm = info.Mode().Perm()
	}
	if err := writeFileAtomic(d.Path, data, perm); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write config %q", d.Path)
	}
	return nil
}

func missingTheme(reason string) error {
	return errdef.New(errdef.CodeMissingTheme, "%s section %s", ThemeKey, reason)
}

func decodeThemeValue(key string, v any) (theme.Entry, error) {
	e, err := theme.DecodeEntry(v)
	if err != nil {
		return theme.Entry{}, errdef.Wrap(errdef.CodeConfig, err, "theme key %q", key)
	}
	return e, nil
}

// write to temp file then rename so readers never see partial/corrupt data.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".themesync-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		closeErr := tmp.Close()
		if closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		closeErr := tmp.Close()
		if closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	return nil
}
