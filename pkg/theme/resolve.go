package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolve turns the palette setting from the config file into a Palette.
// name is tried as a builtin first, then as <configDir>/palettes/<name>.toml,
// then as a literal file path. An empty name resolves to the default
// builtin. Unlike Get, an unknown name is an error so a typo in the config
// is caught at startup.
func Resolve(name, configDir string) (Palette, error) {
	if name == "" {
		return Get("default"), nil
	}
	if Has(name) {
		return Get(name), nil
	}

	candidates := []string{}
	if configDir != "" && !strings.ContainsRune(name, os.PathSeparator) {
		base := name
		if !strings.HasSuffix(base, ".toml") {
			base += ".toml"
		}
		candidates = append(candidates, filepath.Join(configDir, "palettes", base))
	}
	candidates = append(candidates, name)

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Palette{}, fmt.Errorf("theme: read palette %s: %w", path, err)
		}
		p, err := LoadFromTOML(data)
		if err != nil {
			return Palette{}, fmt.Errorf("theme: palette %s: %w", path, err)
		}
		return p, nil
	}

	return Palette{}, fmt.Errorf("theme: unknown palette %q (builtins: %s)", name, strings.Join(Names(), ", "))
}
