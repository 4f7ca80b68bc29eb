package theme

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/BurntSushi/toml"
)

// plTOMLPalette is the TOML-serializable representation of a Palette.
type plTOMLPalette struct {
	Name   string       `toml:"name"`
	Base   plTOMLBase   `toml:"base"`
	Status plTOMLStatus `toml:"status"`
}

type plTOMLBase struct {
	Foreground string `toml:"foreground"`
	Background string `toml:"background"`
	Dim        string `toml:"dim"`
	Accent     string `toml:"accent"`
}

type plTOMLStatus struct {
	Good string `toml:"good"`
	Warn string `toml:"warn"`
	Crit string `toml:"crit"`
}

var plHexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// LoadFromTOML parses a TOML palette definition from raw bytes.
func LoadFromTOML(data []byte) (Palette, error) {
	var tp plTOMLPalette
	if err := toml.Unmarshal(data, &tp); err != nil {
		return Palette{}, fmt.Errorf("theme: parse TOML: %w", err)
	}

	p := Palette{
		Name:       tp.Name,
		Foreground: tp.Base.Foreground,
		Background: tp.Base.Background,
		Dim:        tp.Base.Dim,
		Accent:     tp.Base.Accent,

		Good: tp.Status.Good,
		Warn: tp.Status.Warn,
		Crit: tp.Status.Crit,
	}

	if err := plValidatePalette(p); err != nil {
		return Palette{}, err
	}

	return p, nil
}

// SaveToTOML serializes a palette to TOML bytes.
func SaveToTOML(p Palette) ([]byte, error) {
	tp := plTOMLPalette{
		Name: p.Name,
		Base: plTOMLBase{
			Foreground: p.Foreground,
			Background: p.Background,
			Dim:        p.Dim,
			Accent:     p.Accent,
		},
		Status: plTOMLStatus{
			Good: p.Good,
			Warn: p.Warn,
			Crit: p.Crit,
		},
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(tp); err != nil {
		return nil, fmt.Errorf("theme: encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}

// plValidatePalette checks that all color fields are present and valid hex.
func plValidatePalette(p Palette) error {
	fields := map[string]string{
		"name":       p.Name,
		"foreground": p.Foreground,
		"background": p.Background,
		"dim":        p.Dim,
		"accent":     p.Accent,
		"good":       p.Good,
		"warn":       p.Warn,
		"crit":       p.Crit,
	}

	for field, value := range fields {
		if value == "" {
			return fmt.Errorf("theme: missing required field %q", field)
		}
	}

	colorFields := map[string]string{
		"foreground": p.Foreground,
		"background": p.Background,
		"dim":        p.Dim,
		"accent":     p.Accent,
		"good":       p.Good,
		"warn":       p.Warn,
		"crit":       p.Crit,
	}

	for field, value := range colorFields {
		if !plHexColorRegex.MatchString(value) {
			return fmt.Errorf("theme: invalid hex color %q for field %q (expected #RRGGBB)", value, field)
		}
	}

	return nil
}
