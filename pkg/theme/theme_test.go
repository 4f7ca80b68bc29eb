package theme

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
)

var plTestHexPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// --- Get / Names / Has ---

func TestGetDefault(t *testing.T) {
	p := Get("default")
	if p.Name != "default" {
		t.Errorf("Get(\"default\").Name = %q, want %q", p.Name, "default")
	}
	if p.Accent != "#7C3AED" {
		t.Errorf("Get(\"default\").Accent = %q, want %q", p.Accent, "#7C3AED")
	}
}

func TestGetGruvbox(t *testing.T) {
	p := Get("gruvbox")
	if p.Name != "gruvbox" {
		t.Errorf("Get(\"gruvbox\").Name = %q, want %q", p.Name, "gruvbox")
	}
	if p.Background != "#282828" {
		t.Errorf("Get(\"gruvbox\").Background = %q, want %q", p.Background, "#282828")
	}
	if p.Accent != "#fe8019" {
		t.Errorf("Get(\"gruvbox\").Accent = %q, want %q", p.Accent, "#fe8019")
	}
}

func TestGetUnknownFallsBackToDefault(t *testing.T) {
	p := Get("unknown-palette-xyz")
	def := Get("default")
	if p.Name != def.Name {
		t.Errorf("Get(\"unknown\") = %q, want %q (default)", p.Name, def.Name)
	}
	if p.Accent != def.Accent {
		t.Errorf("Get(\"unknown\").Accent = %q, want %q", p.Accent, def.Accent)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 3 {
		t.Fatalf("Names() returned %d palettes, want 3", len(names))
	}

	expected := []string{"default", "gruvbox", "light"}
	sort.Strings(expected)
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestHas(t *testing.T) {
	if !Has("gruvbox") {
		t.Error("Has(\"gruvbox\") = false, want true")
	}
	if Has("no-such-palette") {
		t.Error("Has(\"no-such-palette\") = true, want false")
	}
}

// --- Built-in palette completeness ---

func TestAllPalettesHaveValidHexColors(t *testing.T) {
	for _, name := range Names() {
		p := Get(name)
		t.Run(name, func(t *testing.T) {
			colors := map[string]string{
				"Foreground": p.Foreground,
				"Background": p.Background,
				"Dim":        p.Dim,
				"Accent":     p.Accent,
				"Good":       p.Good,
				"Warn":       p.Warn,
				"Crit":       p.Crit,
			}
			for field, value := range colors {
				if !plTestHexPattern.MatchString(value) {
					t.Errorf("%s = %q is not valid #RRGGBB", field, value)
				}
			}
		})
	}
}

// --- TOML loading/saving ---

func TestLoadFromTOMLValid(t *testing.T) {
	data := []byte(`
name = "custom"

[base]
foreground = "#eeeeee"
background = "#111111"
dim = "#666666"
accent = "#ff00ff"

[status]
good = "#00ff00"
warn = "#ffff00"
crit = "#ff0000"
`)

	p, err := LoadFromTOML(data)
	if err != nil {
		t.Fatalf("LoadFromTOML() error: %v", err)
	}
	if p.Name != "custom" {
		t.Errorf("Name = %q, want %q", p.Name, "custom")
	}
	if p.Background != "#111111" {
		t.Errorf("Background = %q, want %q", p.Background, "#111111")
	}
	if p.Good != "#00ff00" {
		t.Errorf("Good = %q, want %q", p.Good, "#00ff00")
	}
}

func TestLoadFromTOMLMissingFieldsError(t *testing.T) {
	// Missing the [status] section entirely.
	data := []byte(`
name = "incomplete"

[base]
foreground = "#eeeeee"
background = "#111111"
dim = "#666666"
accent = "#ff00ff"
`)

	_, err := LoadFromTOML(data)
	if err == nil {
		t.Error("LoadFromTOML() should return error for missing fields")
	}
}

func TestLoadFromTOMLInvalidHexColor(t *testing.T) {
	data := []byte(`
name = "badhex"

[base]
foreground = "not-a-color"
background = "#111111"
dim = "#666666"
accent = "#ff00ff"

[status]
good = "#00ff00"
warn = "#ffff00"
crit = "#ff0000"
`)

	_, err := LoadFromTOML(data)
	if err == nil {
		t.Error("LoadFromTOML() should return error for invalid hex color")
	}
	if err != nil && !strings.Contains(err.Error(), "invalid hex color") {
		t.Errorf("error should mention invalid hex color, got: %v", err)
	}
}

func TestSaveToTOMLRoundtrip(t *testing.T) {
	original := Get("gruvbox")

	data, err := SaveToTOML(original)
	if err != nil {
		t.Fatalf("SaveToTOML() error: %v", err)
	}

	loaded, err := LoadFromTOML(data)
	if err != nil {
		t.Fatalf("LoadFromTOML(roundtrip) error: %v", err)
	}

	if loaded.Name != original.Name {
		t.Errorf("roundtrip Name: %q -> %q", original.Name, loaded.Name)
	}
	if loaded.Background != original.Background {
		t.Errorf("roundtrip Background: %q -> %q", original.Background, loaded.Background)
	}
	if loaded.Accent != original.Accent {
		t.Errorf("roundtrip Accent: %q -> %q", original.Accent, loaded.Accent)
	}
	if loaded.Crit != original.Crit {
		t.Errorf("roundtrip Crit: %q -> %q", original.Crit, loaded.Crit)
	}
}

// --- Resolve ---

func TestResolveBuiltin(t *testing.T) {
	p, err := Resolve("gruvbox", "")
	if err != nil {
		t.Fatalf("Resolve(\"gruvbox\") error: %v", err)
	}
	if p.Name != "gruvbox" {
		t.Errorf("Resolve(\"gruvbox\").Name = %q, want %q", p.Name, "gruvbox")
	}
}

func TestResolveEmptyIsDefault(t *testing.T) {
	p, err := Resolve("", "")
	if err != nil {
		t.Fatalf("Resolve(\"\") error: %v", err)
	}
	if p.Name != "default" {
		t.Errorf("Resolve(\"\").Name = %q, want %q", p.Name, "default")
	}
}

func TestResolvePaletteFile(t *testing.T) {
	dir := t.TempDir()
	palDir := filepath.Join(dir, "palettes")
	if err := os.MkdirAll(palDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	data, err := SaveToTOML(Palette{
		Name:       "mine",
		Foreground: "#eeeeee",
		Background: "#111111",
		Dim:        "#666666",
		Accent:     "#ff00ff",
		Good:       "#00ff00",
		Warn:       "#ffff00",
		Crit:       "#ff0000",
	})
	if err != nil {
		t.Fatalf("SaveToTOML() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(palDir, "mine.toml"), data, 0o644); err != nil {
		t.Fatalf("write palette: %v", err)
	}

	p, err := Resolve("mine", dir)
	if err != nil {
		t.Fatalf("Resolve(\"mine\") error: %v", err)
	}
	if p.Accent != "#ff00ff" {
		t.Errorf("Resolve(\"mine\").Accent = %q, want %q", p.Accent, "#ff00ff")
	}
}

func TestResolveUnknownIsError(t *testing.T) {
	_, err := Resolve("definitely-missing", t.TempDir())
	if err == nil {
		t.Error("Resolve(unknown) should return error")
	}
}
