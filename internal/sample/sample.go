// Package sample loads named sample grids from YAML.
package sample

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/tilewave/internal/wfc"
)

//go:embed builtin.yaml
var builtinYAML []byte

// ErrUnknownSample is returned by Get for a name not in the library
var ErrUnknownSample = errors.New("sample: unknown sample")

// fileData is the on-disk shape of a sample library
type fileData struct {
	Palette map[string]string     `yaml:"palette"`
	Samples map[string]sampleData `yaml:"samples"`
}

type sampleData struct {
	Description string   `yaml:"description"`
	Rows        []string `yaml:"rows"`
}

// Entry is a resolved sample
type Entry struct {
	Name        string
	Description string
	Sample      wfc.Sample
}

// Library holds samples by name
type Library struct {
	entries map[string]*Entry
}

// Builtin returns the samples shipped with tilewave
func Builtin() *Library {
	lib, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("sample: built-in library is invalid: %v", err))
	}
	return lib
}

// LoadLibrary returns the built-ins with the samples of the YAML file at path
// merged over them. An empty path returns just the built-ins.
func LoadLibrary(path string) (*Library, error) {
	lib := Builtin()
	if path == "" {
		return lib, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample library: %w", err)
	}
	extra, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lib.Merge(extra)
	return lib, nil
}

// Parse reads a sample library. Rows are listed north first and are stored
// flipped so that row 0 is the southern edge.
func Parse(data []byte) (*Library, error) {
	var fd fileData
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("failed to parse sample library: %w", err)
	}

	palette := make(map[string]wfc.Color, len(fd.Palette))
	for name, hex := range fd.Palette {
		c, err := wfc.ParseColor(hex)
		if err != nil {
			return nil, fmt.Errorf("palette %q: %w", name, err)
		}
		palette[name] = c
	}

	lib := &Library{entries: make(map[string]*Entry, len(fd.Samples))}
	for name, sd := range fd.Samples {
		s, err := resolve(sd.Rows, palette)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", name, err)
		}
		lib.entries[name] = &Entry{Name: name, Description: sd.Description, Sample: s}
	}
	return lib, nil
}

func resolve(rows []string, palette map[string]wfc.Color) (wfc.Sample, error) {
	s := make(wfc.Sample, len(rows))
	for i, row := range rows {
		y := len(rows) - 1 - i
		for _, key := range strings.Fields(row) {
			c, ok := palette[key]
			if !ok {
				return nil, fmt.Errorf("row %d: color %q not in palette", i, key)
			}
			s[y] = append(s[y], c)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Merge adds the samples of other, replacing any with the same name
func (l *Library) Merge(other *Library) {
	for name, e := range other.entries {
		l.entries[name] = e
	}
}

// Get returns a copy of the named sample
func (l *Library) Get(name string) (wfc.Sample, error) {
	e, ok := l.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSample, name)
	}
	out := make(wfc.Sample, len(e.Sample))
	for y, row := range e.Sample {
		out[y] = append([]wfc.Color(nil), row...)
	}
	return out, nil
}

// Describe returns the description of the named sample, or "" if unknown
func (l *Library) Describe(name string) string {
	if e, ok := l.entries[name]; ok {
		return e.Description
	}
	return ""
}

// Names returns the sample names in sorted order
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.entries))
	for name := range l.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
