package theme

// plRegisterBuiltins registers all built-in palettes in the registry.
func plRegisterBuiltins() {
	for _, p := range []Palette{
		plDefaultPalette(),
		plLightPalette(),
		plGruvboxPalette(),
	} {
		plRegister(p)
	}
}

// plDefaultPalette returns the dark neutral palette with purple accent.
func plDefaultPalette() Palette {
	return Palette{
		Name:       "default",
		Foreground: "#d4d4d4",
		Background: "#1e1e1e",
		Dim:        "#6b6b6b",
		Accent:     "#7C3AED",

		Good: "#4ec970",
		Warn: "#e5c07b",
		Crit: "#e06c75",
	}
}

// plLightPalette returns a palette for bars drawn over light backdrops.
func plLightPalette() Palette {
	return Palette{
		Name:       "light",
		Foreground: "#383a42",
		Background: "#fafafa",
		Dim:        "#a0a1a7",
		Accent:     "#a626a4",

		Good: "#50a14f",
		Warn: "#c18401",
		Crit: "#e45649",
	}
}

// plGruvboxPalette returns the warm retro Gruvbox palette.
func plGruvboxPalette() Palette {
	return Palette{
		Name:       "gruvbox",
		Foreground: "#ebdbb2",
		Background: "#282828",
		Dim:        "#928374",
		Accent:     "#fe8019",

		Good: "#b8bb26",
		Warn: "#fabd2f",
		Crit: "#fb4934",
	}
}
